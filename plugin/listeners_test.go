package plugin

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/signadot/rbel/keys"

	jose "github.com/go-jose/go-jose/v4"
)

func TestX5CListener(t *testing.T) {
	k := newECKey(t)
	der := selfSigned(t, k, "signer")
	c := newConverter(t, nil)
	convertString(t, c, fmt.Sprintf(`{"keys":[{"kid":"sig-1","x5c":[%q]}]}`, base64.StdEncoding.EncodeToString(der)))

	key, ok := c.Keys().FindByName("sig-1")
	if !ok {
		t.Fatal("key not added")
	}
	if key.Precedence != keys.PrecedenceX5CHeader || !key.IsPublic() {
		t.Errorf("unexpected key %v", key)
	}

	// A later token signed by the same key verifies through the manager.
	el := convertString(t, c, sign(t, jose.ES256, k, `{"a":1}`, nil))
	if sig := signatureOf(t, el); !sig.Valid || sig.KeyName != "sig-1" {
		t.Errorf("signature %+v", sig)
	}
}

func TestJWKListener(t *testing.T) {
	k := newECKey(t)
	priv, err := json.Marshal(jose.JSONWebKey{Key: k, KeyID: "enc-1"})
	if err != nil {
		t.Fatal(err)
	}
	c := newConverter(t, nil)
	convertString(t, c, string(priv))

	key, ok := c.Keys().FindByName("enc-1")
	if !ok {
		t.Fatal("private key not added")
	}
	if !key.IsPrivate() || key.Precedence != keys.PrecedenceJWK {
		t.Errorf("unexpected key %v", key)
	}
	if _, ok := c.Keys().FindByName("enc-1" + keys.PublicSuffix); !ok {
		t.Errorf("public half not added")
	}
	if got, ok := c.Keys().FindCorrespondingPrivateKey("enc-1" + keys.PublicSuffix); !ok || got != key {
		t.Errorf("private key does not correspond to its public half")
	}

	token := encrypt(t, jose.Recipient{Algorithm: jose.ECDH_ES_A128KW, Key: &k.PublicKey}, `{"x":1}`)
	el := convertString(t, c, token)
	if got := at(t, el, "$.encryptionInfo.decryptedUsingKeyWithId").Content(); got != "enc-1" {
		t.Errorf("decrypted using %q", got)
	}
}

func TestTokenKeyListener(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	c := newConverter(t, nil)
	convertString(t, c, fmt.Sprintf(`{"token_key":%q}`, base64.RawURLEncoding.EncodeToString(secret)))
	el := convertString(t, c, sign(t, jose.HS256, secret, `{"a":1}`, nil))
	if sig := signatureOf(t, el); !sig.Valid || sig.KeyName != "token_key" {
		t.Errorf("signature %+v", sig)
	}
}

func TestListenersIgnoreBrokenKeys(t *testing.T) {
	c := newConverter(t, nil)
	convertString(t, c, `{"kid":"x","x5c":["bm90IGEgY2VydA=="]}`)
	convertString(t, c, `{"kty":"EC","crv":"P-256","x":"AA"}`)
	convertString(t, c, `{"token_key":"***"}`)
	if n := c.Keys().Len(); n != 0 {
		t.Errorf("got %d keys, want none", n)
	}
}
