package plugin

import (
	"fmt"
	"slices"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"

	"github.com/fxamacker/cbor/v2"
)

var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		// byte string keys decode as cbor.ByteString rather than failing.
		MapKeyByteString: cbor.MapKeyByteStringAllowed,
	}.DecMode()
	if err != nil {
		panic("plugin: CBOR decoder initialization failed: " + err.Error())
	}
}

const (
	cborMajorArray = 4
	cborMajorMap   = 5
)

func cborMajor(raw []byte) byte {
	if len(raw) == 0 {
		return 0xff
	}
	return raw[0] >> 5
}

// CBOR decodes CBOR maps and arrays.  Map entries are ordered by the string
// form of their keys.  Text and byte strings are converted further.
type CBOR struct{}

func (CBOR) Name() string { return "cbor" }

func (CBOR) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	raw := el.Raw()
	var (
		f    CBORFacet
		conv []*element.Element
	)
	switch cborMajor(raw) {
	case cborMajorArray:
		var items []cbor.RawMessage
		if err := cborDecMode.Unmarshal(raw, &items); err != nil {
			return false, nil
		}
		f.Array = true
		for i, item := range items {
			c, again := cborChild(el, fmt.Sprint(i), item)
			f.Elems = append(f.Elems, c)
			if again {
				conv = append(conv, c)
			}
		}
	case cborMajorMap:
		var m map[any]cbor.RawMessage
		if err := cborDecMode.Unmarshal(raw, &m); err != nil {
			return false, nil
		}
		type entry struct {
			name string
			v    cbor.RawMessage
		}
		entries := make([]entry, 0, len(m))
		for k, v := range m {
			entries = append(entries, entry{fmt.Sprint(k), v})
		}
		slices.SortFunc(entries, func(a, b entry) int {
			switch {
			case a.name < b.name:
				return -1
			case a.name > b.name:
				return 1
			}
			return 0
		})
		for _, e := range entries {
			c, again := cborChild(el, e.name, e.v)
			f.Entries = append(f.Entries, element.Child{Name: e.name, Element: c})
			if again {
				conv = append(conv, c)
			}
		}
	default:
		return false, nil
	}
	el.AddFacet(f)
	for _, c := range conv {
		ctx.Convert(c)
	}
	return true, nil
}

func cborChild(parent *element.Element, name string, v cbor.RawMessage) (*element.Element, bool) {
	switch cborMajor(v) {
	case cborMajorArray, cborMajorMap:
		return parent.NewChild(name, v), true
	}
	var x any
	if err := cborDecMode.Unmarshal(v, &x); err != nil {
		return parent.NewChild(name, v), false
	}
	switch t := x.(type) {
	case string:
		return value(parent, name, []byte(t), t), true
	case []byte:
		return value(parent, name, t, t), true
	}
	return value(parent, name, v, x), false
}
