package modify

import (
	"encoding/json"
	"fmt"

	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/keys"
	"github.com/signadot/rbel/plugin"

	jose "github.com/go-jose/go-jose/v4"
)

// header members go-jose computes itself when encrypting
var generatedJWEHeaders = map[string]bool{
	"alg": true, "enc": true, "zip": true,
	"epk": true, "iv": true, "tag": true,
	"p2s": true, "p2c": true,
}

// JWTWriter signs the changed header or body again with the key that
// verified the captured token.  A public verification key is replaced by its
// corresponding private key.
type JWTWriter struct {
	Keys *keys.Manager
}

func (JWTWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.JWTKind)
}

func (w JWTWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	f, _ := element.FacetOf[plugin.JWTFacet](parent)
	sig, _ := element.FacetOf[plugin.SignatureFacet](f.Signature)
	if !sig.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, parent)
	}
	header, err := joseHeader(pick(f.Header, child, content))
	if err != nil {
		return nil, err
	}
	alg, _ := header["alg"].(string)
	key, err := w.signingKey(sig.KeyName)
	if err != nil {
		return nil, err
	}
	opts := &jose.SignerOptions{}
	for k, v := range header {
		if k != "alg" {
			opts.WithHeader(jose.HeaderKey(k), v)
		}
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.SignatureAlgorithm(alg), Key: key}, opts)
	if err != nil {
		return nil, err
	}
	obj, err := signer.Sign(pick(f.Body, child, content))
	if err != nil {
		return nil, err
	}
	token, err := obj.CompactSerialize()
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

func (w JWTWriter) signingKey(name string) (any, error) {
	if w.Keys == nil {
		return nil, fmt.Errorf("%w: no key manager", ErrNoKey)
	}
	k, ok := w.Keys.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is not managed", ErrNoKey, name)
	}
	if k.IsSymmetric() || k.IsPrivate() {
		return k.Material, nil
	}
	if priv, ok := w.Keys.FindCorrespondingPrivateKey(name); ok {
		return priv.Material, nil
	}
	return nil, fmt.Errorf("%w: no private key corresponds to %q", ErrNoKey, name)
}

// JWEWriter encrypts the changed header or body again for the key that
// decrypted the captured token.
type JWEWriter struct {
	Keys *keys.Manager
}

func (JWEWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.JWEKind)
}

func (w JWEWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	f, _ := element.FacetOf[plugin.JWEFacet](parent)
	info, _ := element.FacetOf[plugin.EncryptionInfoFacet](f.EncryptionInfo)
	if !info.Decrypted {
		return nil, fmt.Errorf("%w: %s was not decrypted", ErrNoKey, parent)
	}
	header, err := joseHeader(pick(f.Header, child, content))
	if err != nil {
		return nil, err
	}
	alg, _ := header["alg"].(string)
	enc, _ := header["enc"].(string)
	key, err := w.encryptionKey(info.KeyName)
	if err != nil {
		return nil, err
	}
	opts := &jose.EncrypterOptions{}
	for k, v := range header {
		if !generatedJWEHeaders[k] {
			opts.WithHeader(jose.HeaderKey(k), v)
		}
	}
	encrypter, err := jose.NewEncrypter(jose.ContentEncryption(enc),
		jose.Recipient{Algorithm: jose.KeyAlgorithm(alg), Key: key}, opts)
	if err != nil {
		return nil, err
	}
	obj, err := encrypter.Encrypt(pick(f.Body, child, content))
	if err != nil {
		return nil, err
	}
	token, err := obj.CompactSerialize()
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

func (w JWEWriter) encryptionKey(name string) (any, error) {
	if w.Keys == nil {
		return nil, fmt.Errorf("%w: no key manager", ErrNoKey)
	}
	k, ok := w.Keys.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is not managed", ErrNoKey, name)
	}
	switch {
	case k.IsSymmetric():
		return k.Material, nil
	case k.MatchingPublicKey != nil:
		return k.MatchingPublicKey.Material, nil
	}
	if pub, ok := k.Public(); ok {
		return pub, nil
	}
	return nil, fmt.Errorf("%w: no public key for %q", ErrNoKey, name)
}

func joseHeader(raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("jose header: %w", err)
	}
	return m, nil
}
