package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"

	jsonpatch "github.com/evanphx/json-patch"
)

// ReplaceMapper rewrites every occurrence of old in a message with repl.
// Messages without old are passed through unchanged.
func ReplaceMapper(old, repl string) convert.Mapper {
	o, n := []byte(old), []byte(repl)
	return convert.MapperFunc(func(el *element.Element, _ *convert.Context) *element.Element {
		if len(o) == 0 || !bytes.Contains(el.Raw(), o) {
			return el
		}
		return element.New(bytes.ReplaceAll(el.Raw(), o, n))
	})
}

var contentLengthLine = regexp.MustCompile(`(?im)^content-length:[ \t]*\d+`)

// JSONPatchMapper applies an RFC 6902 patch to JSON messages and to the
// JSON bodies of HTTP messages.  The Content-Length of a patched HTTP
// message is updated.
func JSONPatchMapper(patch []byte) (convert.Mapper, error) {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decoding json patch: %w", err)
	}
	return convert.MapperFunc(func(el *element.Element, ctx *convert.Context) *element.Element {
		raw := el.Raw()
		if isJSONDoc(raw) {
			out, err := ops.Apply(raw)
			if err != nil {
				ctx.Log().Debug().Err(err).Msg("json patch not applicable")
				return el
			}
			return element.New(out)
		}
		head, body, sep, ok := splitHTTP(raw)
		if !ok || !isJSONDoc(body) {
			return el
		}
		out, err := ops.Apply(body)
		if err != nil {
			ctx.Log().Debug().Err(err).Msg("json patch not applicable")
			return el
		}
		head = contentLengthLine.ReplaceAll(head, []byte(fmt.Sprintf("Content-Length: %d", len(out))))
		res := make([]byte, 0, len(head)+len(sep)+len(out))
		res = append(append(append(res, head...), sep...), out...)
		return element.New(res)
	}), nil
}

func isJSONDoc(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) >= 2 && (t[0] == '{' || t[0] == '[') && json.Valid(t)
}

// splitHTTP splits an HTTP message at the empty line ending its header.
func splitHTTP(raw []byte) (head, body []byte, sep string, ok bool) {
	if !bytes.HasPrefix(raw, []byte("HTTP/")) && !bytes.Contains(firstLine(raw), []byte(" HTTP/")) {
		return nil, nil, "", false
	}
	for _, s := range []string{"\r\n\r\n", "\n\n"} {
		if i := bytes.Index(raw, []byte(s)); i >= 0 {
			return raw[:i], raw[i+len(s):], s, true
		}
	}
	return nil, nil, "", false
}

func firstLine(raw []byte) []byte {
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		return raw[:i]
	}
	return raw
}
