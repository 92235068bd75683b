package element

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

const noParent = -1

// Tree is the arena holding every element of one decoded message.
type Tree struct {
	nodes []*Element
}

// Len returns the number of elements allocated in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

func (t *Tree) alloc(name string, raw []byte, parent int) *Element {
	el := &Element{
		tree:   t,
		id:     len(t.nodes),
		parent: parent,
		name:   name,
		raw:    raw,
	}
	t.nodes = append(t.nodes, el)
	return el
}

type Element struct {
	tree   *Tree
	id     int
	parent int
	name   string
	raw    []byte
	facets []Facet
	note   *string
	null   bool
}

// New creates the root element of a fresh tree.
func New(raw []byte) *Element {
	t := &Tree{}
	return t.alloc("", raw, noParent)
}

// Null returns a new null element.  All null elements are equivalent.
func Null() *Element {
	return &Element{parent: noParent, null: true}
}

// NewChild allocates a child of el in el's tree.  The child is not attached to
// any facet; the caller does that by returning it from a facet's children.
func (el *Element) NewChild(name string, raw []byte) *Element {
	if el.null {
		return Null()
	}
	return el.tree.alloc(name, raw, el.id)
}

// NewChildString is NewChild for textual content.
func (el *Element) NewChildString(name, content string) *Element {
	return el.NewChild(name, []byte(content))
}

func (el *Element) IsNull() bool { return el == nil || el.null }

func (el *Element) Raw() []byte { return el.raw }

func (el *Element) Content() string { return string(el.raw) }

func (el *Element) Size() int { return len(el.raw) }

func (el *Element) Name() string { return el.name }

func (el *Element) Tree() *Tree { return el.tree }

// Parent returns the parent element or nil for roots.
func (el *Element) Parent() *Element {
	if el.tree == nil || el.parent == noParent {
		return nil
	}
	return el.tree.nodes[el.parent]
}

func (el *Element) Root() *Element {
	if el.tree == nil {
		return el
	}
	return el.tree.nodes[0]
}

// Path returns the names from the root to el joined by ".".  Names that are
// not plain words are written as ['name'], so the result is a valid path
// expression after "$".  The root has the empty path.
func (el *Element) Path() string {
	var names []string
	for x := el; x != nil && x.Parent() != nil; x = x.Parent() {
		names = append(names, x.name)
	}
	slices.Reverse(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(PathSegment(n))
	}
	return strings.TrimPrefix(b.String(), ".")
}

// NeedsQuote reports whether name must be quoted in a path expression.
func NeedsQuote(name string) bool {
	return name == "" || name == "*" || strings.ContainsAny(name, ".[]'\" ")
}

// PathSegment formats name as ".name", or as a quoted bracket segment when
// NeedsQuote holds.
func PathSegment(name string) string {
	switch {
	case !NeedsQuote(name):
		return "." + name
	case strings.Contains(name, "'"):
		return `["` + name + `"]`
	}
	return "['" + name + "']"
}

// AddFacet attaches f, replacing a facet of the same kind if there is one.
func (el *Element) AddFacet(f Facet) *Element {
	if el.null || f == nil {
		return el
	}
	k := f.Kind()
	for i, g := range el.facets {
		if g.Kind() == k {
			el.facets[i] = f
			return el
		}
	}
	el.facets = append(el.facets, f)
	return el
}

func (el *Element) Facets() []Facet {
	return slices.Clone(el.facets)
}

func (el *Element) Kinds() []Kind {
	res := make([]Kind, len(el.facets))
	for i, f := range el.facets {
		res[i] = f.Kind()
	}
	return res
}

func (el *Element) Facet(k Kind) (Facet, bool) {
	for _, f := range el.facets {
		if f.Kind() == k {
			return f, true
		}
	}
	return nil, false
}

func (el *Element) HasFacet(k Kind) bool {
	_, ok := el.Facet(k)
	return ok
}

// FacetOf returns the first facet of el with dynamic type T.
func FacetOf[T Facet](el *Element) (T, bool) {
	for _, f := range el.facets {
		if t, ok := f.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Children returns the named children exposed by el's facets, in facet order.
// An element reachable through several facets is reported once.
func (el *Element) Children() []Child {
	var res []Child
	seen := map[*Element]bool{}
	for _, f := range el.facets {
		p, ok := f.(Parent)
		if !ok {
			continue
		}
		for _, c := range p.Children() {
			if c.Element == nil || seen[c.Element] {
				continue
			}
			seen[c.Element] = true
			res = append(res, c)
		}
	}
	return res
}

// All returns the children named name.
func (el *Element) All(name string) []*Element {
	var res []*Element
	for _, c := range el.Children() {
		if c.Name == name {
			res = append(res, c.Element)
		}
	}
	return res
}

// First returns the first child named name.
func (el *Element) First(name string) (*Element, bool) {
	for _, c := range el.Children() {
		if c.Name == name {
			return c.Element, true
		}
	}
	return nil, false
}

// Items returns the positional children of the first list-like facet.
func (el *Element) Items() []*Element {
	for _, f := range el.facets {
		if l, ok := f.(Lister); ok {
			return l.Items()
		}
	}
	return nil
}

func (el *Element) Item(i int) (*Element, bool) {
	items := el.Items()
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return items[i], true
}

// Visit walks the tree rooted at el in pre-order.  Returning false from f
// skips the element's children.
func (el *Element) Visit(f func(*Element) bool) {
	el.visit(f, map[*Element]bool{})
}

func (el *Element) visit(f func(*Element) bool, seen map[*Element]bool) {
	if seen[el] {
		return
	}
	seen[el] = true
	if !f(el) {
		return
	}
	for _, c := range el.Children() {
		c.Element.visit(f, seen)
	}
}

// Descendants returns every element below el in pre-order, el excluded.
func (el *Element) Descendants() []*Element {
	var res []*Element
	el.Visit(func(x *Element) bool {
		if x != el {
			res = append(res, x)
		}
		return true
	})
	return res
}

func (el *Element) SetNote(note string) {
	if el.null {
		return
	}
	el.note = &note
}

func (el *Element) Note() (string, bool) {
	if el.note == nil {
		return "", false
	}
	return *el.note, true
}

// Shape classifies raw content for pre-conversion mapping.
type Shape int

const (
	ShapeAny Shape = iota
	ShapeText
	ShapeBinary
)

func (s Shape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeBinary:
		return "binary"
	default:
		return "any"
	}
}

func (el *Element) Shape() Shape {
	if utf8.Valid(el.raw) {
		return ShapeText
	}
	return ShapeBinary
}

func (el *Element) String() string {
	if el.null {
		return "<null>"
	}
	p := el.Path()
	switch {
	case p == "":
		p = "$"
	case strings.HasPrefix(p, "["):
		p = "$" + p
	default:
		p = "$." + p
	}
	return p + "[" + strconv.Itoa(len(el.raw)) + " bytes]"
}
