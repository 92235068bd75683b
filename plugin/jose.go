package plugin

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/keys"

	jose "github.com/go-jose/go-jose/v4"
)

var (
	jwsPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`)
	jwePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

	signatureAlgorithms = []jose.SignatureAlgorithm{
		jose.EdDSA,
		jose.HS256, jose.HS384, jose.HS512,
		jose.RS256, jose.RS384, jose.RS512,
		jose.ES256, jose.ES384, jose.ES512,
		jose.PS256, jose.PS384, jose.PS512,
	}
	keyAlgorithms = []jose.KeyAlgorithm{
		jose.RSA1_5, jose.RSA_OAEP, jose.RSA_OAEP_256,
		jose.A128KW, jose.A192KW, jose.A256KW,
		jose.DIRECT,
		jose.ECDH_ES, jose.ECDH_ES_A128KW, jose.ECDH_ES_A192KW, jose.ECDH_ES_A256KW,
		jose.A128GCMKW, jose.A192GCMKW, jose.A256GCMKW,
	}
	contentEncryptions = []jose.ContentEncryption{
		jose.A128CBC_HS256, jose.A192CBC_HS384, jose.A256CBC_HS512,
		jose.A128GCM, jose.A192GCM, jose.A256GCM,
	}
)

// EncryptedPayload is the body content of a JWE no key could decrypt.
const EncryptedPayload = "<Encrypted Payload>"

// X5CKeyName names the key in a verified JWT's own x5c header.
const X5CKeyName = "x5c"

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// joseHeader decodes a protected header, which must be a JSON object.
func joseHeader(seg string) ([]byte, map[string]any, bool) {
	d, err := decodeSegment(seg)
	if err != nil {
		return nil, nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(d, &m); err != nil {
		return nil, nil, false
	}
	return d, m, true
}

// JWT decodes compact JWS tokens and verifies their signature against the
// key manager, then against the token's own x5c certificate.
type JWT struct{}

func (JWT) Name() string { return "jwt" }

func (JWT) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	token := strings.TrimSpace(el.Content())
	if !jwsPattern.MatchString(token) {
		return false, nil
	}
	parts := strings.Split(token, ".")
	hd, hm, ok := joseHeader(parts[0])
	if !ok {
		return false, nil
	}
	if _, ok := hm["alg"]; !ok {
		return false, nil
	}
	bd, err := decodeSegment(parts[1])
	if err != nil {
		return false, err
	}
	header := el.NewChild("header", hd)
	body := el.NewChild("body", bd)
	sig := el.NewChildString("signature", parts[2])
	sf := SignatureFacet{}
	sf.KeyName, sf.Valid = verify(token, hm, ctx)
	sf.IsValid = value(sig, "isValid", []byte(boolString(sf.Valid)), sf.Valid)
	if sf.Valid {
		sf.VerifiedUsing = value(sig, "verifiedUsing", []byte(sf.KeyName), sf.KeyName)
	}
	sig.AddFacet(sf)
	el.AddFacet(JWTFacet{Header: header, Body: body, Signature: sig})
	ctx.Convert(header)
	ctx.Convert(body)
	return true, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func verify(token string, header map[string]any, ctx *convert.Context) (string, bool) {
	obj, err := jose.ParseSigned(token, signatureAlgorithms)
	if err != nil {
		ctx.Log().Debug().Err(err).Msg("unverifiable jwt")
		return "", false
	}
	for _, k := range ctx.Keys().All() {
		var material any
		if k.IsSymmetric() {
			material = k.Material
		} else if pub, ok := k.Public(); ok {
			material = pub
		} else {
			continue
		}
		if _, err := obj.Verify(material); err == nil {
			return k.Name, true
		}
	}
	if cert, ok := x5cCertificate(header); ok {
		if _, err := obj.Verify(cert.PublicKey); err == nil {
			return X5CKeyName, true
		}
	}
	if len(obj.Signatures) > 0 {
		if jwk := obj.Signatures[0].Header.JSONWebKey; jwk != nil && jwk.Valid() {
			if _, err := obj.Verify(jwk.Public().Key); err == nil {
				return "jwk", true
			}
		}
	}
	return "", false
}

// x5cCertificate returns the leaf certificate of an x5c header member.
func x5cCertificate(m map[string]any) (*x509.Certificate, bool) {
	chain, ok := m["x5c"].([]any)
	if !ok || len(chain) == 0 {
		return nil, false
	}
	s, ok := chain[0].(string)
	if !ok {
		return nil, false
	}
	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, false
	}
	return cert, true
}

// JWE decodes compact JWE tokens, decrypting them with the first key in
// precedence order that works.
type JWE struct{}

func (JWE) Name() string { return "jwe" }

func (JWE) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	token := strings.TrimSpace(el.Content())
	if !jwePattern.MatchString(token) {
		return false, nil
	}
	parts := strings.Split(token, ".")
	hd, hm, ok := joseHeader(parts[0])
	if !ok {
		return false, nil
	}
	if _, ok := hm["enc"]; !ok {
		return false, nil
	}
	header := el.NewChild("header", hd)
	info := el.NewChildString("encryptionInfo", "")
	var f EncryptionInfoFacet
	plain, key, ok := decrypt(token, ctx.Keys(), ctx)
	var body *element.Element
	if ok {
		body = el.NewChild("body", plain)
		f.Decrypted, f.KeyName = true, key.Name
		f.DecryptedUsing = value(info, "decryptedUsingKeyWithId", []byte(key.Name), key.Name)
	} else {
		body = el.NewChildString("body", EncryptedPayload)
	}
	f.WasDecryptable = value(info, "wasDecryptable", []byte(boolString(ok)), ok)
	info.AddFacet(f)
	el.AddFacet(JWEFacet{Header: header, Body: body, EncryptionInfo: info})
	ctx.Convert(header)
	if ok {
		ctx.Convert(body)
	}
	return true, nil
}

func decrypt(token string, km *keys.Manager, ctx *convert.Context) ([]byte, *keys.Key, bool) {
	for _, k := range km.All() {
		if k.IsPublic() {
			continue
		}
		// Decrypt may consume state of a parsed object, parse per attempt.
		obj, err := jose.ParseEncrypted(token, keyAlgorithms, contentEncryptions)
		if err != nil {
			ctx.Log().Debug().Err(err).Msg("undecryptable jwe")
			return nil, nil, false
		}
		plain, err := obj.Decrypt(k.Material)
		if err == nil {
			return plain, k, true
		}
	}
	return nil, nil, false
}
