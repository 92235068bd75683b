package encode

import (
	"io"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"
)

type EncodeOption func(*EncState)

// Shader replaces the rendered value of an element, for instance to hide
// secrets.
type Shader interface {
	Shade(el *element.Element) (string, bool)
}

func EncodeColors(c *Colors) EncodeOption {
	return func(es *EncState) { es.colors = c }
}
func EncodeFacets(v bool) EncodeOption {
	return func(es *EncState) { es.facets = v }
}
func EncodeNotes(v bool) EncodeOption {
	return func(es *EncState) { es.notes = v }
}
func EncodeShading(s Shader) EncodeOption {
	return func(es *EncState) { es.shader = s }
}

// Depth limits the number of levels below the encoded element.  0 means no
// limit.
func Depth(n int) EncodeOption {
	return func(es *EncState) { es.maxDepth = n }
}

// MaxValue truncates rendered values longer than n bytes.
func MaxValue(n int) EncodeOption {
	return func(es *EncState) { es.maxValue = n }
}

// DisplayOptions returns the options matching d for output written to w.
func DisplayOptions(d config.Display, w io.Writer) []EncodeOption {
	return []EncodeOption{
		EncodeColors(ColorsFor(w, d.Colors)),
		EncodeFacets(d.Facets),
		EncodeNotes(true),
	}
}
