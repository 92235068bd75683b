package rbel

import (
	"io"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/keys"
	"github.com/signadot/rbel/modify"

	"github.com/rs/zerolog"
)

type Option func(*options)

type options struct {
	listeners    []listenerOpt
	mappers      []mapperOpt
	initializers []convert.Initializer
	keys         []*keys.Key
	capturer     convert.Capturer
	plugins      []convert.Plugin
	writers      []modify.Writer
	log          *zerolog.Logger
	logOutput    io.Writer
}

type listenerOpt struct {
	kind element.Kind
	l    convert.Listener
}

type mapperOpt struct {
	shape element.Shape
	m     convert.Mapper
}

// WithListener registers a post-conversion listener, after the built-in key
// listeners and before the note annotator.
func WithListener(kind element.Kind, l convert.Listener) Option {
	return func(o *options) { o.listeners = append(o.listeners, listenerOpt{kind, l}) }
}

func WithMapper(shape element.Shape, m convert.Mapper) Option {
	return func(o *options) { o.mappers = append(o.mappers, mapperOpt{shape, m}) }
}

// WithInitializer runs fn against the assembled converter before the
// capturer is initialized.
func WithInitializer(fn convert.Initializer) Option {
	return func(o *options) { o.initializers = append(o.initializers, fn) }
}

func WithKey(k *keys.Key) Option {
	return func(o *options) { o.keys = append(o.keys, k) }
}

func WithCapturer(c convert.Capturer) Option {
	return func(o *options) { o.capturer = c }
}

// WithPlugins replaces the built-in plugin chain.
func WithPlugins(ps ...convert.Plugin) Option {
	return func(o *options) { o.plugins = append(o.plugins, ps...) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithLogOutput logs to w as configured by the Log section of the
// configuration.  WithLogger takes precedence.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithWriter registers a modification writer ahead of the built-in ones.
func WithWriter(w modify.Writer) Option {
	return func(o *options) { o.writers = append(o.writers, w) }
}
