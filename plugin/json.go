package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

// JSON decodes JSON objects and arrays, keeping member order.  String
// members are converted further.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	raw := bytes.TrimSpace(el.Raw())
	if len(raw) < 2 || (raw[0] != '{' && raw[0] != '[') || !json.Valid(raw) {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	var (
		f    = JSONFacet{Array: tok == json.Delim('[')}
		conv []*element.Element
	)
	for i := 0; dec.More(); i++ {
		name := fmt.Sprint(i)
		if !f.Array {
			tok, err := dec.Token()
			if err != nil {
				return false, err
			}
			name = tok.(string)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return false, err
		}
		child, again := jsonChild(el, name, v)
		if f.Array {
			f.Elems = append(f.Elems, child)
		} else {
			f.Entries = append(f.Entries, element.Child{Name: name, Element: child})
		}
		if again {
			conv = append(conv, child)
		}
	}
	el.AddFacet(f)
	for _, c := range conv {
		ctx.Convert(c)
	}
	return true, nil
}

// jsonChild creates the child for a member value and reports whether it
// should be converted further.
func jsonChild(parent *element.Element, name string, v json.RawMessage) (*element.Element, bool) {
	switch v[0] {
	case '{', '[':
		return parent.NewChild(name, v), true
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return parent.NewChild(name, v), false
		}
		return value(parent, name, []byte(s), s), true
	}
	var x any
	if err := json.Unmarshal(v, &x); err != nil {
		return parent.NewChild(name, v), false
	}
	return value(parent, name, v, x), false
}
