package modify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/plugin"
)

// URIWriter writes a basic path followed by its query parameters.  Changed
// parameter values are query-escaped; a captured fragment is kept.
type URIWriter struct{}

func (URIWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.URIKind)
}

func (URIWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	f, _ := element.FacetOf[plugin.URIFacet](parent)
	var b strings.Builder
	b.Write(pick(f.BasicPath, child, content))
	if len(f.Params) > 0 {
		b.WriteByte('?')
		b.WriteString(query(f.Params, child, content))
	}
	if _, frag, ok := strings.Cut(parent.Content(), "#"); ok {
		b.WriteString("#" + frag)
	}
	return []byte(b.String()), nil
}

// FormWriter writes url-encoded form bodies.
type FormWriter struct{}

func (FormWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.FormKind)
}

func (FormWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	f, _ := element.FacetOf[plugin.FormFacet](parent)
	return []byte(query(f.Fields, child, content)), nil
}

func query(params []element.Child, child *element.Element, content []byte) string {
	parts := make([]string, len(params))
	for i, p := range params {
		v := string(p.Element.Raw())
		if p.Element == child {
			v = url.QueryEscape(string(content))
		}
		parts[i] = url.QueryEscape(p.Name) + "=" + v
	}
	return strings.Join(parts, "&")
}

// BearerWriter writes "Bearer <token>" header values.
type BearerWriter struct{}

func (BearerWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.BearerKind)
}

func (BearerWriter) Write(_, _ *element.Element, content []byte) ([]byte, error) {
	return append([]byte("Bearer "), content...), nil
}

// Base64Writer encodes the changed payload with the encoding the captured
// text used.
type Base64Writer struct{}

func (Base64Writer) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.Base64Kind)
}

func (Base64Writer) Write(parent, _ *element.Element, content []byte) ([]byte, error) {
	enc, _, ok := plugin.Base64Encoding(parent.Content())
	if !ok {
		return nil, fmt.Errorf("%s is no longer base64", parent)
	}
	return []byte(enc.EncodeToString(content)), nil
}
