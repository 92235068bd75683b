package convert

import (
	"fmt"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/keys"

	"github.com/rs/zerolog"
)

// Context is handed to plugins, mappers and listeners during the conversion
// of one message.
type Context struct {
	conv    *Converter
	plugins []Plugin
	depth   int
}

func (ctx *Context) Keys() *keys.Manager    { return ctx.conv.keys }
func (ctx *Context) Config() *config.Config { return ctx.conv.cfg }
func (ctx *Context) Log() *zerolog.Logger   { return &ctx.conv.log }
func (ctx *Context) Converter() *Converter  { return ctx.conv }
func (ctx *Context) Depth() int             { return ctx.depth }

// LastRequest is the most recent request converted by the converter.
func (ctx *Context) LastRequest() *element.Element { return ctx.conv.LastRequest() }

// Convert offers el to the plugin chain one level deeper than ctx.  Plugins
// call it for the children they create.
func (ctx *Context) Convert(el *element.Element) *element.Element {
	if el == nil || el.IsNull() {
		return el
	}
	if limit := ctx.conv.cfg.MaxDepth; limit > 0 && ctx.depth >= limit {
		ctx.conv.log.Debug().Str("path", el.Path()).Int("depth", ctx.depth).Msg("maximum conversion depth reached")
		return el
	}
	child := &Context{conv: ctx.conv, plugins: ctx.plugins, depth: ctx.depth + 1}
	child.convert(el)
	return el
}

func (ctx *Context) convert(el *element.Element) {
	for _, p := range ctx.plugins {
		ctx.apply(p, el)
	}
}

func (ctx *Context) apply(p Plugin, el *element.Element) {
	defer func() {
		if r := recover(); r != nil {
			ctx.conv.log.Debug().Str("plugin", p.Name()).Str("path", el.Path()).
				Err(fmt.Errorf("panic: %v", r)).Msg("plugin failed")
		}
	}()
	ok, err := p.Convert(el, ctx)
	if err != nil {
		ctx.conv.log.Debug().Str("plugin", p.Name()).Str("path", el.Path()).Err(err).Msg("plugin failed")
		return
	}
	if ok && ctx.conv.log.GetLevel() <= zerolog.TraceLevel {
		ctx.conv.log.Trace().Str("plugin", p.Name()).Str("path", el.Path()).Msg("recognized")
	}
}

func (ctx *Context) applyMappers(el *element.Element, mappers []mapperEntry) *element.Element {
	for _, m := range mappers {
		if m.shape != element.ShapeAny && m.shape != el.Shape() {
			continue
		}
		if res := ctx.applyMapper(m.mapper, el); res != nil {
			el = res
		}
	}
	return el
}

func (ctx *Context) applyMapper(m Mapper, el *element.Element) (res *element.Element) {
	defer func() {
		if r := recover(); r != nil {
			ctx.conv.log.Debug().Err(fmt.Errorf("panic: %v", r)).Msg("mapper failed")
			res = nil
		}
	}()
	return m.Map(el, ctx)
}

// runListeners visits the tree in pre-order; at each element the matching
// listeners run in registration order.
func (ctx *Context) runListeners(root *element.Element, listeners []listenerEntry) {
	if len(listeners) == 0 {
		return
	}
	nodes := append([]*element.Element{root}, root.Descendants()...)
	for _, el := range nodes {
		for _, l := range listeners {
			if l.kind != element.AnyKind && !el.HasFacet(l.kind) {
				continue
			}
			ctx.handle(l.listener, el)
		}
	}
}

func (ctx *Context) handle(l Listener, el *element.Element) {
	defer func() {
		if r := recover(); r != nil {
			ctx.conv.log.Debug().Str("path", el.Path()).Err(fmt.Errorf("panic: %v", r)).Msg("listener failed")
		}
	}()
	l.Handle(el, ctx)
}
