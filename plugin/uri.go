package plugin

import (
	"net/url"
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

// URI decodes request targets and absolute http(s) URLs into a basic path
// and query parameters.
type URI struct{}

func (URI) Name() string { return "uri" }

func (URI) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	content := el.Content()
	if content == "" || strings.ContainsAny(content, " \t\r\n") {
		return false, nil
	}
	if !strings.HasPrefix(content, "/") {
		u, err := url.Parse(content)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return false, nil
		}
	}
	basic, query, hasQuery := strings.Cut(content, "?")
	f := URIFacet{BasicPath: el.NewChildString("basicPath", basic)}
	if hasQuery {
		query, _, _ = strings.Cut(query, "#")
		for _, kv := range strings.Split(query, "&") {
			if kv == "" {
				continue
			}
			k, v, _ := strings.Cut(kv, "=")
			name, err := url.QueryUnescape(k)
			if err != nil {
				name = k
			}
			dv, err := url.QueryUnescape(v)
			if err != nil {
				dv = v
			}
			f.Params = append(f.Params, element.Child{Name: name, Element: value(el, name, []byte(v), dv)})
		}
	}
	el.AddFacet(f)
	for _, c := range f.Params {
		ctx.Convert(c.Element)
	}
	return true, nil
}
