package encode

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signadot/rbel/element"
)

type EncState struct {
	indent   int
	maxDepth int
	maxValue int
	facets   bool
	notes    bool
	shader   Shader
	colors   *Colors
}

// Encode writes el and its descendants as an indented tree, one element per
// line.  Leaves show their content; elements with children show their facet
// kinds when facets are enabled.
func Encode(el *element.Element, w io.Writer, opts ...EncodeOption) error {
	es := &EncState{indent: 2, notes: true}
	for _, opt := range opts {
		opt(es)
	}
	if el.IsNull() {
		return writeString(w, es.color(BinaryColor, "null")+"\n")
	}
	return encode(el, "$", 0, w, es, map[*element.Element]bool{})
}

func encode(el *element.Element, name string, depth int, w io.Writer, es *EncState, seen map[*element.Element]bool) error {
	if seen[el] {
		return nil
	}
	seen[el] = true
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", depth*es.indent))
	b.WriteString(es.color(NameColor, name))
	if es.facets {
		if kinds := el.Kinds(); len(kinds) > 0 {
			ks := make([]string, len(kinds))
			for i, k := range kinds {
				ks[i] = string(k)
			}
			b.WriteString(" " + es.color(KindColor, "["+strings.Join(ks, " ")+"]"))
		}
	}
	children := el.Children()
	shaded, isShaded := es.shade(el)
	switch {
	case isShaded:
		b.WriteString(es.color(SepColor, ":") + " " + es.color(ShadeColor, strconv.Quote(shaded)))
		children = nil
	case len(children) == 0 || (es.maxDepth > 0 && depth >= es.maxDepth):
		b.WriteString(es.color(SepColor, ":") + " " + es.value(el))
	}
	if es.notes {
		if note, ok := el.Note(); ok {
			b.WriteString(" " + es.color(NoteColor, "# "+note))
		}
	}
	b.WriteByte('\n')
	if err := writeString(w, b.String()); err != nil {
		return err
	}
	if es.maxDepth > 0 && depth >= es.maxDepth {
		return nil
	}
	for _, c := range children {
		if err := encode(c.Element, c.Name, depth+1, w, es, seen); err != nil {
			return err
		}
	}
	return nil
}

// shade returns the shaded value of el.  Shaded elements are rendered
// without their subtree.
func (es *EncState) shade(el *element.Element) (string, bool) {
	if es.shader == nil {
		return "", false
	}
	return es.shader.Shade(el)
}

func (es *EncState) value(el *element.Element) string {
	if el.IsNull() {
		return es.color(BinaryColor, "null")
	}
	if el.Shape() == element.ShapeBinary {
		return es.color(BinaryColor, fmt.Sprintf("<%d bytes>", el.Size()))
	}
	s := el.Content()
	if es.maxValue > 0 && len(s) > es.maxValue {
		s = s[:es.maxValue] + "..."
	}
	return es.color(ValueColor, strconv.Quote(s))
}

func (es *EncState) color(a ColorAttr, s string) string {
	return es.colors.Get(a)(s)
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
