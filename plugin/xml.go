package plugin

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

// XML decodes one XML element per conversion: its attributes, its child
// elements by local name and its text.  Child elements are converted in
// turn.
type XML struct{}

func (XML) Name() string { return "xml" }

func (XML) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	raw := el.Raw()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) < 3 || trimmed[0] != '<' || trimmed[len(trimmed)-1] != '>' {
		return false, nil
	}
	d := xml.NewDecoder(bytes.NewReader(raw))
	var root *xml.StartElement
	for root == nil {
		tok, err := d.Token()
		if err != nil {
			return false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			root = &t
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return false, nil
			}
		case xml.EndElement:
			return false, nil
		}
	}
	f := XMLFacet{Space: root.Name.Space, Tag: root.Name.Local}
	var conv []*element.Element
	for _, a := range root.Attr {
		c := value(el, a.Name.Local, []byte(a.Value), a.Value)
		f.Entries = append(f.Entries, element.Child{Name: a.Name.Local, Element: c})
		conv = append(conv, c)
	}
	var text strings.Builder
	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("unterminated element <%s>", root.Name.Local)
			}
			return false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return false, err
			}
			c := el.NewChild(t.Name.Local, raw[start:d.InputOffset()])
			f.Entries = append(f.Entries, element.Child{Name: t.Name.Local, Element: c})
			conv = append(conv, c)
			continue
		case xml.CharData:
			text.Write(t)
			continue
		case xml.EndElement:
		default:
			continue
		}
		break
	}
	if s := strings.TrimSpace(text.String()); s != "" {
		c := value(el, "text", []byte(s), s)
		f.Entries = append(f.Entries, element.Child{Name: "text", Element: c})
		conv = append(conv, c)
	}
	el.AddFacet(f)
	for _, c := range conv {
		ctx.Convert(c)
	}
	return true, nil
}
