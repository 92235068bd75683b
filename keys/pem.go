package keys

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// PublicSuffix names the public half of a private key loaded from PEM.
const PublicSuffix = "_pub"

// ParsePEM parses every key and certificate block in data.  Private keys are
// returned together with their public half, named name+PublicSuffix.
func ParsePEM(name string, data []byte, precedence int) ([]*Key, error) {
	var res []*Key
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		ks, err := fromBlock(name, block, precedence)
		if err != nil {
			return nil, err
		}
		res = append(res, ks...)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: no PEM key material in %q", ErrUnsupportedKey, name)
	}
	return res, nil
}

func fromBlock(name string, block *pem.Block, precedence int) ([]*Key, error) {
	var (
		material any
		err      error
	)
	switch block.Type {
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			material = cert.PublicKey
		}
	case "PUBLIC KEY":
		material, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		material, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "PRIVATE KEY":
		material, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		material, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		material, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s block in %q: %w", ErrUnsupportedKey, block.Type, name, err)
	}
	k, err := New(name, material, precedence)
	if err != nil {
		return nil, err
	}
	pub, ok := k.Public()
	if !k.IsPrivate() || !ok {
		return []*Key{k}, nil
	}
	pk, err := New(name+PublicSuffix, pub, precedence)
	if err != nil {
		return nil, err
	}
	k.MatchingPublicKey = pk
	return []*Key{k, pk}, nil
}

// LoadPEM parses a PEM file and adds its keys.  It returns the number of keys
// inserted.
func (m *Manager) LoadPEM(name, path string, precedence int) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	ks, err := ParsePEM(name, data, precedence)
	if err != nil {
		return 0, err
	}
	return m.AddAll(ks...), nil
}
