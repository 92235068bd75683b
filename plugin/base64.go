package plugin

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding.Strict(),
	base64.RawStdEncoding.Strict(),
	base64.URLEncoding.Strict(),
	base64.RawURLEncoding.Strict(),
}

// Base64 decodes base64 and base64url text whose payload is a JSON object or
// array.
type Base64 struct{}

func (Base64) Name() string { return "base64" }

func (Base64) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	s := el.Content()
	if len(s) < 4 || strings.ContainsAny(s, " \t\r\n.") {
		return false, nil
	}
	_, d, ok := Base64Encoding(s)
	if !ok {
		return false, nil
	}
	t := bytes.TrimSpace(d)
	if len(t) < 2 || (t[0] != '{' && t[0] != '[') || !json.Valid(t) {
		return false, nil
	}
	f := Base64Facet{Decoded: el.NewChild("decoded", d)}
	el.AddFacet(f)
	ctx.Convert(f.Decoded)
	return true, nil
}

// Base64Encoding returns the first of the standard and URL encodings, padded
// or raw, that decodes s, along with the decoded bytes.
func Base64Encoding(s string) (*base64.Encoding, []byte, bool) {
	for _, enc := range base64Encodings {
		if d, err := enc.DecodeString(s); err == nil {
			return enc, d, true
		}
	}
	return nil, nil, false
}
