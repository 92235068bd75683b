package keys

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Manager holds the keys available for signature verification and
// decryption.  It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	keys    []*Key // ordered by precedence, then insertion
	byPrint map[[32]byte]*Key
	log     zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		byPrint: map[[32]byte]*Key{},
		log:     log,
	}
}

// Add inserts k unless a key with the same encoded material is already
// present.  It reports whether k was inserted.  Keys built as literals are
// encoded here; material that cannot be encoded is rejected.
func (m *Manager) Add(k *Key) bool {
	if k == nil {
		return false
	}
	if err := k.prepare(); err != nil {
		m.log.Warn().Err(err).Msg("rejecting key")
		return false
	}
	if pub := k.MatchingPublicKey; pub != nil {
		if err := pub.prepare(); err != nil {
			m.log.Warn().Err(err).Str("key", k.Name).Msg("dropping unencodable matching public key")
			k.MatchingPublicKey = nil
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byPrint[k.fingerprint]; ok {
		m.log.Debug().Str("key", k.Name).Str("existing", prev.Name).Msg("dropping duplicate key")
		return false
	}
	m.byPrint[k.fingerprint] = k
	i, _ := slices.BinarySearchFunc(m.keys, k.Precedence, func(x *Key, p int) int {
		if x.Precedence <= p {
			return -1
		}
		return 1
	})
	m.keys = slices.Insert(m.keys, i, k)
	m.log.Debug().Str("key", k.Name).Int("precedence", k.Precedence).Msg("added key")
	return true
}

// AddKey creates a key from material and inserts it.
func (m *Manager) AddKey(name string, material any, precedence int) (bool, error) {
	k, err := New(name, material, precedence)
	if err != nil {
		return false, err
	}
	return m.Add(k), nil
}

// AddAll inserts every key and returns the number inserted.
func (m *Manager) AddAll(keys ...*Key) int {
	n := 0
	for _, k := range keys {
		if m.Add(k) {
			n++
		}
	}
	return n
}

// All returns the keys ordered by ascending precedence; keys of equal
// precedence keep their insertion order.
func (m *Manager) All() []*Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.keys)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// FindByName returns the first key, in precedence order, named name.
func (m *Manager) FindByName(name string) (*Key, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findByName(name)
}

func (m *Manager) findByName(name string) (*Key, bool) {
	for _, k := range m.keys {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}

// FindCorrespondingPrivateKey returns the private key declaring the public
// key named publicName as its match.  If the manager itself holds a key named
// publicName, the declared public key must be that key.
func (m *Manager) FindCorrespondingPrivateKey(publicName string) (*Key, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, haveStored := m.findByName(publicName)
	for _, k := range m.keys {
		pub := k.MatchingPublicKey
		if pub == nil || pub.Name != publicName {
			continue
		}
		if haveStored && pub.fingerprint != stored.fingerprint {
			continue
		}
		return k, true
	}
	return nil, false
}
