package modify

import (
	"bytes"
	"encoding/json"

	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/plugin"
)

// JSONWriter writes JSON objects and arrays compactly, keeping member order.
// String members are quoted again; other members are written as captured.
type JSONWriter struct{}

func (JSONWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.JSONKind)
}

func (JSONWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	f, _ := element.FacetOf[plugin.JSONFacet](parent)
	var b bytes.Buffer
	if f.Array {
		b.WriteByte('[')
		for i, el := range f.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeMember(&b, el, pick(el, child, content)); err != nil {
				return nil, err
			}
		}
		b.WriteByte(']')
		return b.Bytes(), nil
	}
	b.WriteByte('{')
	for i, c := range f.Entries {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeString(&b, c.Name); err != nil {
			return nil, err
		}
		b.WriteByte(':')
		if err := writeMember(&b, c.Element, pick(c.Element, child, content)); err != nil {
			return nil, err
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeMember(b *bytes.Buffer, el *element.Element, raw []byte) error {
	if v, ok := element.ValueOf(el); ok {
		if _, ok := v.(string); ok {
			return writeString(b, string(raw))
		}
	}
	b.Write(raw)
	return nil
}

func writeString(b *bytes.Buffer, s string) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	b.Truncate(b.Len() - 1)
	return nil
}
