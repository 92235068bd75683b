package element

import (
	"strconv"
)

// Kind identifies a facet type.
type Kind string

// AnyKind matches every element when registering listeners.
const AnyKind Kind = "*"

const (
	ValueKind    Kind = "value"
	MapKind      Kind = "map"
	ListKind     Kind = "list"
	TCPIPKind    Kind = "tcpip"
	HostnameKind Kind = "hostname"
)

type Facet interface {
	Kind() Kind
}

type Child struct {
	Name    string
	Element *Element
}

type Parent interface {
	Facet
	Children() []Child
}

type Lister interface {
	Facet
	Items() []*Element
}

type Valuer interface {
	Facet
	Value() any
}

// Summary describes a protocol message for criterion evaluation.
type Summary struct {
	Method     string
	URL        string
	Path       string
	StatusCode int
	Request    bool
	Response   bool
	// Paired is the request a response answers, if known.
	Paired *Element
}

type Summarizer interface {
	Facet
	Summary() Summary
}

// ValueFacet carries a decoded scalar.
type ValueFacet struct {
	V any
}

func (ValueFacet) Kind() Kind   { return ValueKind }
func (f ValueFacet) Value() any { return f.V }

// MapFacet exposes an ordered list of named children.  Names may repeat.
type MapFacet struct {
	Entries []Child
}

func (MapFacet) Kind() Kind          { return MapKind }
func (f MapFacet) Children() []Child { return f.Entries }

// ListFacet exposes positional children, named by their index.
type ListFacet struct {
	Elements []*Element
}

func (ListFacet) Kind() Kind          { return ListKind }
func (f ListFacet) Items() []*Element { return f.Elements }

func (f ListFacet) Children() []Child {
	res := make([]Child, len(f.Elements))
	for i, el := range f.Elements {
		res[i] = Child{Name: strconv.Itoa(i), Element: el}
	}
	return res
}

// ValueOf returns the value of el's first Valuer facet.
func ValueOf(el *Element) (any, bool) {
	for _, f := range el.facets {
		if v, ok := f.(Valuer); ok {
			return v.Value(), true
		}
	}
	return nil, false
}
