package plugin

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/rpath"

	"github.com/rs/zerolog"
)

func newConverter(t *testing.T, cfg *config.Config) *convert.Converter {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := convert.New(convert.Setup{
		Config:  cfg,
		Log:     zerolog.Nop(),
		Plugins: Defaults(cfg),
	})
	RegisterListeners(c)
	return c
}

func convertString(t *testing.T, c *convert.Converter, s string) *element.Element {
	t.Helper()
	return c.Convert([]byte(s), nil, nil)
}

// at returns the single element at path, failing the test otherwise.
func at(t *testing.T, root *element.Element, path string) *element.Element {
	t.Helper()
	el, ok := rpath.FindOne(root, path)
	if !ok {
		t.Fatalf("nothing at %s in\n%s", path, root.Content())
	}
	return el
}

func absent(t *testing.T, root *element.Element, path string) {
	t.Helper()
	if els := rpath.Find(root, path); len(els) != 0 {
		t.Errorf("expected nothing at %s, got %d elements", path, len(els))
	}
}

func newECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// selfSigned returns the DER encoding of a certificate for k.
func selfSigned(t *testing.T, k *ecdsa.PrivateKey, cn string) []byte {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(4711),
		Subject:      pkix.Name{CommonName: cn},
		Issuer:       pkix.Name{CommonName: cn},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &k.PublicKey, k)
	if err != nil {
		t.Fatal(err)
	}
	return der
}

func TestDefaults(t *testing.T) {
	names := func(ps []convert.Plugin) []string {
		var res []string
		for _, p := range ps {
			res = append(res, p.Name())
		}
		return res
	}
	cfg := config.DefaultConfig()
	got := names(Defaults(cfg))
	want := []string{"http", "uri", "bearer", "json", "xml", "jwt", "jwe", "base64", "x509", "cbor"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	cfg.ActivateASN1 = true
	if got := names(Defaults(cfg)); got[len(got)-1] != "asn1" {
		t.Errorf("asn1 not last when activated: %v", got)
	}
}
