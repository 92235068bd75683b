package rpath

import (
	"slices"

	"github.com/signadot/rbel/element"

	"github.com/rs/zerolog"
)

// Filter decides whether a candidate child is kept by a "[?(...)]" segment.
type Filter interface {
	Match(el *element.Element) bool
}

type FilterFunc func(*element.Element) bool

func (f FilterFunc) Match(el *element.Element) bool { return f(el) }

// FilterCompiler turns the source between "[?(" and ")]" into a Filter.
type FilterCompiler func(src string) (Filter, error)

type options struct {
	filter FilterCompiler
	log    *zerolog.Logger
}

type Option func(*options)

// WithFilter enables "[?(...)]" segments.
func WithFilter(c FilterCompiler) Option {
	return func(o *options) { o.filter = c }
}

// WithDebug logs every evaluation step at debug level.
func WithDebug(log zerolog.Logger) Option {
	return func(o *options) { o.log = &log }
}

// Path is a compiled path expression.
type Path struct {
	src  string
	head *Segment
	log  *zerolog.Logger
}

// Compile parses src.  Paths always start with "$".
func Compile(src string, opts ...Option) (*Path, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	p := &parser{src: src, opts: o}
	head, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Path{src: src, head: head, log: o.log}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string, opts ...Option) *Path {
	p, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Path) String() string { return "$" + p.head.String() }

// Eval returns the elements selected by p, starting at root, in pre-order
// with duplicates removed.
func (p *Path) Eval(root *element.Element) []*element.Element {
	if root == nil {
		return nil
	}
	if root.IsNull() {
		if p.head == nil {
			return []*element.Element{root}
		}
		return nil
	}
	cur := []*element.Element{root}
	for s := p.head; s != nil && len(cur) > 0; s = s.Next {
		cur = step(s, cur)
		if p.log != nil {
			p.log.Debug().Str("path", p.src).Str("segment", s.describe()).Int("matches", len(cur)).Msg("rpath step")
		}
	}
	if len(cur) > 1 {
		documentOrder(root, cur)
	}
	return cur
}

func documentOrder(root *element.Element, els []*element.Element) {
	pos := map[*element.Element]int{}
	root.Visit(func(el *element.Element) bool {
		pos[el] = len(pos)
		return true
	})
	slices.SortStableFunc(els, func(a, b *element.Element) int {
		return pos[a] - pos[b]
	})
}

// Find compiles and evaluates src against root.  Syntax errors yield an empty
// result.
func Find(root *element.Element, src string, opts ...Option) []*element.Element {
	p, err := Compile(src, opts...)
	if err != nil {
		return nil
	}
	return p.Eval(root)
}

// FindOne returns the first element selected by src.
func FindOne(root *element.Element, src string, opts ...Option) (*element.Element, bool) {
	res := Find(root, src, opts...)
	if len(res) == 0 {
		return nil, false
	}
	return res[0], true
}

func step(s *Segment, cur []*element.Element) []*element.Element {
	var out []*element.Element
	seen := map[*element.Element]bool{}
	add := func(el *element.Element) {
		if el == nil || seen[el] {
			return
		}
		seen[el] = true
		out = append(out, el)
	}
	for _, el := range cur {
		switch s.kind {
		case segName:
			for _, c := range el.All(s.name) {
				add(c)
			}
		case segWildcard:
			for _, c := range el.Children() {
				add(c.Element)
			}
		case segDescend:
			el.Visit(func(x *element.Element) bool {
				add(x)
				return true
			})
		case segIndex:
			if it, ok := el.Item(s.index); ok {
				add(it)
			}
		case segFilter:
			for _, c := range el.Children() {
				if s.filter.Match(c.Element) {
					add(c.Element)
				}
			}
		}
	}
	return out
}

func (s *Segment) describe() string {
	x := *s
	x.Next = nil
	return x.String()
}
