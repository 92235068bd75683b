package rbel

import (
	"fmt"
	"io"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/encode"
	"github.com/signadot/rbel/eval"
	"github.com/signadot/rbel/keys"
	"github.com/signadot/rbel/modify"
	"github.com/signadot/rbel/note"
	"github.com/signadot/rbel/plugin"

	"github.com/rs/zerolog"
)

// Inspector converts captured messages and keeps the state shared between
// them: keys, history, annotation and modification rules.
type Inspector struct {
	cfg      *config.Config
	log      zerolog.Logger
	conv     *convert.Converter
	ev       *eval.Evaluator
	notes    *note.Annotator
	mod      *modify.Modifier
	capturer convert.Capturer
}

// New assembles an inspector.  Environment switches are applied to a copy
// of cfg; a nil cfg means config.DefaultConfig().
func New(cfg *config.Config, opts ...Option) (*Inspector, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg = cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	switch {
	case o.log != nil:
		log = *o.log
	case o.logOutput != nil:
		l, err := config.NewLogger(cfg.Log, o.logOutput)
		if err != nil {
			return nil, fmt.Errorf("%w: log level: %w", config.ErrInvalid, err)
		}
		log = l
	}

	km := keys.NewManager(log)
	km.AddAll(o.keys...)
	for _, kf := range cfg.Keys {
		prec := kf.Precedence
		if prec == 0 {
			prec = keys.PrecedenceKeyFolder
		}
		n, err := km.LoadPEM(kf.Name, kf.File, prec)
		if err != nil {
			return nil, fmt.Errorf("loading key %q: %w", kf.Name, err)
		}
		log.Debug().Str("key", kf.Name).Int("added", n).Msg("loaded key file")
	}

	ev := eval.New(eval.Setup{Display: cfg.Display, Log: log})
	notes := note.New(ev)
	notes.AddConfig(cfg)

	plugins := o.plugins
	if len(plugins) == 0 {
		plugins = plugin.Defaults(cfg)
	}
	conv := convert.New(convert.Setup{
		Config:  cfg,
		Keys:    km,
		Log:     log,
		Plugins: plugins,
	})
	for _, m := range o.mappers {
		conv.RegisterMapper(m.shape, m.m)
	}
	plugin.RegisterListeners(conv)
	for _, l := range o.listeners {
		conv.RegisterListener(l.kind, l.l)
	}
	conv.RegisterListener(element.AnyKind, notes.Listener())

	for _, fn := range o.initializers {
		if err := fn(conv); err != nil {
			return nil, fmt.Errorf("initializer: %w", err)
		}
	}
	mod := modify.New(conv, ev)
	for _, w := range o.writers {
		mod.AddWriter(w)
	}
	if err := mod.AddConfig(cfg); err != nil {
		return nil, err
	}
	in := &Inspector{
		cfg:      cfg,
		log:      log,
		conv:     conv,
		ev:       ev,
		notes:    notes,
		mod:      mod,
		capturer: o.capturer,
	}
	if in.capturer != nil {
		if err := in.capturer.Initialize(conv); err != nil {
			return nil, fmt.Errorf("capturer: %w", err)
		}
	}
	return in, nil
}

// Convert decodes one message without endpoint information.
func (in *Inspector) Convert(raw []byte) *element.Element {
	return in.conv.Convert(raw, nil, nil)
}

// ConvertFrom decodes one message sent from sender to receiver.
func (in *Inspector) ConvertFrom(raw []byte, sender, receiver *element.Hostname) *element.Element {
	return in.conv.Convert(raw, sender, receiver)
}

// History returns the retained messages, oldest first.
func (in *Inspector) History() []*element.Element { return in.conv.History().Messages() }

func (in *Inspector) Config() *config.Config        { return in.cfg }
func (in *Inspector) Keys() *keys.Manager           { return in.conv.Keys() }
func (in *Inspector) Converter() *convert.Converter { return in.conv }
func (in *Inspector) Evaluator() *eval.Evaluator    { return in.ev }
func (in *Inspector) Notes() *note.Annotator        { return in.notes }
func (in *Inspector) Modifier() *modify.Modifier    { return in.mod }

// Find evaluates a path, with criterion filters, against root.
func (in *Inspector) Find(root *element.Element, path string) []*element.Element {
	return in.ev.Find(root, path)
}

// Matches reports whether criterion holds for el.
func (in *Inspector) Matches(el *element.Element, criterion string) bool {
	return in.ev.Matches(el, criterion)
}

// Modify applies the registered modifications to msg and returns the
// converted result.  msg is left untouched.
func (in *Inspector) Modify(msg *element.Element) (*element.Element, error) {
	return in.mod.Apply(msg)
}

// Render writes el as a tree using the display configuration, shading
// values by the configured shading rules.
func (in *Inspector) Render(w io.Writer, el *element.Element) error {
	opts := append(encode.DisplayOptions(in.cfg.Display, w), encode.EncodeShading(in.notes))
	return encode.Encode(el, w, opts...)
}

// Close closes the capturer, if any.
func (in *Inspector) Close() error {
	if in.capturer == nil {
		return nil
	}
	return in.capturer.Close()
}
