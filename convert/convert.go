package convert

import (
	"sync"
	"sync/atomic"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/keys"

	"github.com/rs/zerolog"
)

// Plugin recognizes content and attaches facets.  Convert reports whether it
// recognized el.  Plugins convert the children they create with
// ctx.Convert.
type Plugin interface {
	Name() string
	Convert(el *element.Element, ctx *Context) (bool, error)
}

// Mapper rewrites a top-level element before any facet is attached.
type Mapper interface {
	Map(el *element.Element, ctx *Context) *element.Element
}

type MapperFunc func(el *element.Element, ctx *Context) *element.Element

func (f MapperFunc) Map(el *element.Element, ctx *Context) *element.Element { return f(el, ctx) }

// Listener observes elements of a fully built message.
type Listener interface {
	Handle(el *element.Element, ctx *Context)
}

type ListenerFunc func(el *element.Element, ctx *Context)

func (f ListenerFunc) Handle(el *element.Element, ctx *Context) { f(el, ctx) }

// Initializer runs once against an assembled converter before first use.
type Initializer func(c *Converter) error

// Capturer supplies captured messages to a converter.  Initialize is called
// once before first use; the capturer must not call Convert after Close
// returns.
type Capturer interface {
	Initialize(c *Converter) error
	Close() error
}

type Setup struct {
	Config  *config.Config
	Keys    *keys.Manager
	Log     zerolog.Logger
	Plugins []Plugin
}

type mapperEntry struct {
	shape  element.Shape
	mapper Mapper
}

type listenerEntry struct {
	kind     element.Kind
	listener Listener
}

// Converter decodes raw messages into element trees.  Convert may be called
// concurrently.
type Converter struct {
	cfg  *config.Config
	keys *keys.Manager
	log  zerolog.Logger

	mu        sync.RWMutex
	plugins   []Plugin
	mappers   []mapperEntry
	listeners []listenerEntry

	history     *History
	seq         atomic.Uint64
	lastRequest atomic.Pointer[element.Element]
}

func New(s Setup) *Converter {
	cfg := s.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	km := s.Keys
	if km == nil {
		km = keys.NewManager(s.Log)
	}
	return &Converter{
		cfg:     cfg,
		keys:    km,
		log:     s.Log,
		plugins: append([]Plugin(nil), s.Plugins...),
		history: NewHistory(cfg.ManageBuffer, cfg.BufferBytes(), s.Log),
	}
}

func (c *Converter) Config() *config.Config { return c.cfg }
func (c *Converter) Keys() *keys.Manager    { return c.keys }
func (c *Converter) Log() zerolog.Logger    { return c.log }
func (c *Converter) History() *History      { return c.history }

// LastRequest returns the most recent top-level request message.
func (c *Converter) LastRequest() *element.Element { return c.lastRequest.Load() }

// AddPlugin appends p to the plugin chain.
func (c *Converter) AddPlugin(p Plugin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins = append(c.plugins, p)
}

func (c *Converter) Plugins() []Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Plugin(nil), c.plugins...)
}

// RegisterMapper adds a pre-conversion mapper for elements of the given
// shape.  element.ShapeAny applies to every element.
func (c *Converter) RegisterMapper(shape element.Shape, m Mapper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappers = append(c.mappers, mapperEntry{shape: shape, mapper: m})
}

// RegisterListener adds a post-conversion listener for elements carrying a
// facet of the given kind.  element.AnyKind applies to every element.
func (c *Converter) RegisterListener(kind element.Kind, l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listenerEntry{kind: kind, listener: l})
}

// Convert decodes one captured message.  A nil raw yields a null element and
// is not recorded.  Content that no plugin recognizes yields an element
// without facets.
func (c *Converter) Convert(raw []byte, sender, receiver *element.Hostname) *element.Element {
	if raw == nil {
		return element.Null()
	}
	c.mu.RLock()
	ctx := &Context{
		conv:    c,
		plugins: append([]Plugin(nil), c.plugins...),
	}
	mappers := append([]mapperEntry(nil), c.mappers...)
	listeners := append([]listenerEntry(nil), c.listeners...)
	c.mu.RUnlock()

	el := element.New(raw)
	el = ctx.applyMappers(el, mappers)
	if limit := c.cfg.SkipParsingBytes(); limit > 0 && int64(el.Size()) > limit {
		c.log.Info().Int("size", el.Size()).Int64("limit", limit).Msg("skipping parsing of large message")
	} else {
		ctx.convert(el)
	}
	seq := c.seq.Add(1) - 1
	if sender != nil || receiver != nil {
		element.AttachTCPIP(el, seq, sender, receiver)
	}
	if s, ok := element.FacetOf[element.Summarizer](el); ok && s.Summary().Request {
		c.lastRequest.Store(el)
	}
	ctx.runListeners(el, listeners)
	c.history.Add(el)
	return el
}

// ConvertAll decodes messages in order.
func (c *Converter) ConvertAll(raws ...[]byte) []*element.Element {
	res := make([]*element.Element, len(raws))
	for i, raw := range raws {
		res[i] = c.Convert(raw, nil, nil)
	}
	return res
}
