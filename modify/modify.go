package modify

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/eval"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoWriter         = errors.New("no writer for element")
	ErrInvalidSignature = errors.New("signature is not valid")
	ErrNoKey            = errors.New("no usable key")
)

type Rule = config.Modification

// Writer re-encodes a parent element after one of its children changed.
type Writer interface {
	CanWrite(parent *element.Element) bool
	// Write returns the raw content of parent with child's content replaced
	// by content.
	Write(parent, child *element.Element, content []byte) ([]byte, error)
}

// Modifier applies modification rules to converted messages.
type Modifier struct {
	conv *convert.Converter
	ev   *eval.Evaluator
	log  zerolog.Logger

	mu      sync.RWMutex
	rules   []Rule
	writers []Writer
}

// New returns a modifier re-encoding with the built-in writers.  Modified
// messages are converted again by conv, signed and encrypted with its keys.
func New(conv *convert.Converter, ev *eval.Evaluator) *Modifier {
	return &Modifier{
		conv:    conv,
		ev:      ev,
		log:     conv.Log(),
		writers: Writers(conv),
	}
}

// Writers returns the built-in writers, most specific first.
func Writers(conv *convert.Converter) []Writer {
	km := conv.Keys()
	return []Writer{
		HTTPMessageWriter{},
		HTTPHeaderWriter{},
		JSONWriter{},
		URIWriter{},
		FormWriter{},
		BearerWriter{},
		Base64Writer{},
		JWTWriter{Keys: km},
		JWEWriter{Keys: km},
	}
}

// AddWriter registers w ahead of the built-in writers.
func (m *Modifier) AddWriter(w Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writers = slices.Insert(m.writers, 0, w)
}

// AddModification registers r and returns its name.  Unnamed rules get a
// random name; a rule named like an existing one replaces it in place.
func (m *Modifier) AddModification(r Rule) (string, error) {
	if r.Target == "" {
		return "", fmt.Errorf("%w: modification has no target", config.ErrInvalid)
	}
	if r.RegexFilter != "" {
		if _, err := regexp.Compile(r.RegexFilter); err != nil {
			return "", fmt.Errorf("%w: modification %q: %w", config.ErrInvalid, r.Name, err)
		}
	}
	if r.Name == "" {
		r.Name = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.IndexFunc(m.rules, func(x Rule) bool { return x.Name == r.Name }); i >= 0 {
		m.rules[i] = r
	} else {
		m.rules = append(m.rules, r)
	}
	return r.Name, nil
}

// AddConfig registers the modifications of cfg.
func (m *Modifier) AddConfig(cfg *config.Config) error {
	for _, r := range cfg.Modifications {
		if _, err := m.AddModification(r); err != nil {
			return err
		}
	}
	return nil
}

// Modifications returns the rules in registration order.
func (m *Modifier) Modifications() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rules)
}

func (m *Modifier) DeleteModification(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.rules)
	m.rules = slices.DeleteFunc(m.rules, func(r Rule) bool { return r.Name == name })
	return len(m.rules) != n
}

func (m *Modifier) DeleteAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = nil
}

// Apply runs every rule whose condition holds for msg, in registration
// order.  Each applied rule rewrites its first target in the current
// message, re-encodes the enclosing elements up to the root and converts the
// result again.  msg itself is never changed.  On error Apply returns the
// message as modified by the preceding rules.
func (m *Modifier) Apply(msg *element.Element) (*element.Element, error) {
	m.mu.RLock()
	rules := slices.Clone(m.rules)
	writers := slices.Clone(m.writers)
	m.mu.RUnlock()
	if msg.IsNull() || len(rules) == 0 {
		return msg, nil
	}
	sender, receiver := endpoints(msg)
	cur := msg
	for _, r := range rules {
		if r.Condition != "" && !m.ev.Matches(msg, r.Condition) {
			continue
		}
		targets := m.ev.Find(cur, r.Target)
		if len(targets) == 0 {
			m.log.Debug().Str("modification", r.Name).Str("target", r.Target).Msg("no target")
			continue
		}
		raw, err := rewrite(writers, targets[0], replacement(targets[0], r))
		if err != nil {
			return cur, fmt.Errorf("modification %q: %w", r.Name, err)
		}
		cur = m.conv.Convert(raw, sender, receiver)
		m.log.Debug().Str("modification", r.Name).Str("target", r.Target).Msg("applied modification")
	}
	return cur, nil
}

func replacement(target *element.Element, r Rule) []byte {
	if r.RegexFilter == "" {
		return []byte(r.ReplaceWith)
	}
	re := regexp.MustCompile(r.RegexFilter)
	return re.ReplaceAll(target.Raw(), []byte(r.ReplaceWith))
}

// rewrite walks from target to the root, letting the first capable writer
// re-encode each ancestor around its changed child.
func rewrite(writers []Writer, target *element.Element, content []byte) ([]byte, error) {
	child := target
	for parent := target.Parent(); parent != nil; parent = parent.Parent() {
		i := slices.IndexFunc(writers, func(w Writer) bool { return w.CanWrite(parent) })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s with facets %v", ErrNoWriter, parent, parent.Kinds())
		}
		var err error
		content, err = writers[i].Write(parent, child, content)
		if err != nil {
			return nil, fmt.Errorf("rewriting %s: %w", parent, err)
		}
		child = parent
	}
	return content, nil
}

func endpoints(msg *element.Element) (sender, receiver *element.Hostname) {
	f, ok := element.FacetOf[element.TCPIPFacet](msg)
	if !ok {
		return nil, nil
	}
	hostname := func(el *element.Element) *element.Hostname {
		if el == nil {
			return nil
		}
		h, ok := element.FacetOf[element.HostnameFacet](el)
		if !ok {
			return nil
		}
		return &h.Hostname
	}
	return hostname(f.Sender), hostname(f.Receiver)
}
