package keys

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

var ErrUnsupportedKey = errors.New("unsupported key material")

// Precedences of the built-in key sources.  Lower precedences are tried
// first.
const (
	PrecedenceX5CHeader = 100
	PrecedenceJWK       = 105
	PrecedenceKeyFolder = 110
)

// Key is a named piece of key material.  Material is a public key, a private
// key, or a []byte holding a symmetric key.
type Key struct {
	Name       string
	Material   any
	Precedence int
	// MatchingPublicKey is the public half of a private key, if known.
	MatchingPublicKey *Key

	encoded     []byte
	fingerprint [32]byte
}

type privateKey interface {
	Public() crypto.PublicKey
}

// New creates a key, encoding its material.  Material that cannot be encoded
// is rejected so that a corrupt key never reaches a Manager.
func New(name string, material any, precedence int) (*Key, error) {
	enc, err := encode(material)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", name, err)
	}
	return &Key{
		Name:        name,
		Material:    material,
		Precedence:  precedence,
		encoded:     enc,
		fingerprint: blake3.Sum256(enc),
	}, nil
}

// NewPrivate creates a private key that corresponds to public.
func NewPrivate(name string, material any, precedence int, public *Key) (*Key, error) {
	k, err := New(name, material, precedence)
	if err != nil {
		return nil, err
	}
	k.MatchingPublicKey = public
	return k, nil
}

// prepare fills in the encoding and fingerprint of a key built from its
// exported fields.
func (k *Key) prepare() error {
	if k.encoded != nil {
		return nil
	}
	enc, err := encode(k.Material)
	if err != nil {
		return fmt.Errorf("key %q: %w", k.Name, err)
	}
	k.encoded, k.fingerprint = enc, blake3.Sum256(enc)
	return nil
}

func encode(material any) ([]byte, error) {
	switch m := material.(type) {
	case nil:
		return nil, ErrUnsupportedKey
	case []byte:
		if len(m) == 0 {
			return nil, fmt.Errorf("%w: empty symmetric key", ErrUnsupportedKey)
		}
		return append([]byte(nil), m...), nil
	case privateKey:
		d, err := x509.MarshalPKCS8PrivateKey(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
		}
		return d, nil
	default:
		d, err := x509.MarshalPKIXPublicKey(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
		}
		return d, nil
	}
}

// Encoded returns the PKCS#8, PKIX or raw encoding of the material.
func (k *Key) Encoded() []byte { return k.encoded }

func (k *Key) Fingerprint() string { return hex.EncodeToString(k.fingerprint[:]) }

func (k *Key) IsSymmetric() bool {
	_, ok := k.Material.([]byte)
	return ok
}

func (k *Key) IsPrivate() bool {
	_, ok := k.Material.(privateKey)
	return ok
}

func (k *Key) IsPublic() bool { return !k.IsSymmetric() && !k.IsPrivate() }

// KeyPair returns the public and private halves of a private key with a
// known matching public key.
func (k *Key) KeyPair() (crypto.PublicKey, crypto.PrivateKey, bool) {
	if !k.IsPrivate() || k.MatchingPublicKey == nil || !k.MatchingPublicKey.IsPublic() {
		return nil, nil, false
	}
	return k.MatchingPublicKey.Material, k.Material, true
}

// Public returns the public key of an asymmetric key.
func (k *Key) Public() (crypto.PublicKey, bool) {
	switch {
	case k.IsPublic():
		return k.Material, true
	case k.IsPrivate():
		return k.Material.(privateKey).Public(), true
	}
	return nil, false
}

func (k *Key) String() string {
	return fmt.Sprintf("%s(%d)", k.Name, k.Precedence)
}
