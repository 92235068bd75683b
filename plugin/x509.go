package plugin

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"time"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

// X509Facet is attached to certificates in PEM, DER or base64 DER form.
type X509Facet struct {
	Certificate *x509.Certificate
	Fields      []element.Child
}

func (X509Facet) Kind() element.Kind          { return X509Kind }
func (f X509Facet) Children() []element.Child { return f.Fields }

// X509 decodes certificates.
type X509 struct{}

func (X509) Name() string { return "x509" }

func (X509) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	cert := parseCertificate(el.Raw())
	if cert == nil {
		return false, nil
	}
	f := X509Facet{Certificate: cert}
	add := func(name, s string, v any) {
		f.Fields = append(f.Fields, element.Child{Name: name, Element: value(el, name, []byte(s), v)})
	}
	add("subject", cert.Subject.String(), cert.Subject.String())
	add("issuer", cert.Issuer.String(), cert.Issuer.String())
	add("serialNumber", cert.SerialNumber.String(), cert.SerialNumber.String())
	add("notBefore", cert.NotBefore.Format(time.RFC3339), cert.NotBefore)
	add("notAfter", cert.NotAfter.Format(time.RFC3339), cert.NotAfter)
	add("signatureAlgorithm", cert.SignatureAlgorithm.String(), cert.SignatureAlgorithm.String())
	add("publicKeyAlgorithm", cert.PublicKeyAlgorithm.String(), cert.PublicKeyAlgorithm.String())
	el.AddFacet(f)
	return true, nil
}

func parseCertificate(raw []byte) *x509.Certificate {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return nil
	}
	var der []byte
	switch {
	case bytes.HasPrefix(t, []byte("-----BEGIN CERTIFICATE-----")):
		block, _ := pem.Decode(t)
		if block == nil {
			return nil
		}
		der = block.Bytes
	case t[0] == 0x30:
		der = t
	default:
		s := string(t)
		if len(s) < 64 || strings.ContainsAny(s, " \t\r\n") || !strings.HasPrefix(s, "MI") {
			return nil
		}
		d, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil
		}
		der = d
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil
	}
	return cert
}
