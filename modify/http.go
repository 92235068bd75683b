package modify

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/plugin"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var contentLength = regexp.MustCompile(`(?im)^content-length:[ \t]*\d+`)

// HTTPHeaderWriter writes header blocks, one "Name: value" line per field.
type HTTPHeaderWriter struct{}

func (HTTPHeaderWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.HTTPHeaderKind)
}

func (HTTPHeaderWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	f, _ := element.FacetOf[plugin.HTTPHeaderFacet](parent)
	var b bytes.Buffer
	for i, c := range f.Fields {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.Write(pick(c.Element, child, content))
	}
	return b.Bytes(), nil
}

// HTTPMessageWriter writes requests and responses.  The body is framed and
// compressed as the captured header declares, and Content-Length follows the
// new body.
type HTTPMessageWriter struct{}

func (HTTPMessageWriter) CanWrite(parent *element.Element) bool {
	return parent.HasFacet(plugin.HTTPMessageKind)
}

func (HTTPMessageWriter) Write(parent, child *element.Element, content []byte) ([]byte, error) {
	mf, _ := element.FacetOf[plugin.HTTPMessageFacet](parent)
	version := httpVersion(parent.Raw())
	var start string
	if req, ok := element.FacetOf[plugin.HTTPRequestFacet](parent); ok {
		start = string(pick(req.Method, child, content)) + " " + string(pick(req.Path, child, content)) + " " + version
	} else if resp, ok := element.FacetOf[plugin.HTTPResponseFacet](parent); ok {
		start = version + " " + string(pick(resp.ResponseCode, child, content))
		if resp.ReasonPhrase != nil {
			if reason := strings.TrimSpace(string(pick(resp.ReasonPhrase, child, content))); reason != "" {
				start += " " + reason
			}
		}
	} else {
		return nil, fmt.Errorf("http message %s is neither request nor response", parent)
	}
	hf, _ := element.FacetOf[plugin.HTTPHeaderFacet](mf.Header)
	body, err := encodeBody(pick(mf.Body, child, content), hf)
	if err != nil {
		return nil, err
	}
	header := pick(mf.Header, child, content)
	if !hf.HasValue("Transfer-Encoding", "chunked") {
		header = contentLength.ReplaceAll(header, []byte("Content-Length: "+strconv.Itoa(len(body))))
	}
	var b bytes.Buffer
	b.WriteString(start)
	b.WriteString("\r\n")
	if len(header) > 0 {
		b.Write(header)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes(), nil
}

func httpVersion(raw []byte) string {
	line, _, _ := bytes.Cut(raw, []byte("\n"))
	fields := strings.Fields(string(line))
	switch {
	case len(fields) == 0:
	case strings.HasPrefix(fields[0], "HTTP/"):
		return fields[0]
	case strings.HasPrefix(fields[len(fields)-1], "HTTP/"):
		return fields[len(fields)-1]
	}
	return "HTTP/1.1"
}

func encodeBody(body []byte, hf plugin.HTTPHeaderFacet) ([]byte, error) {
	if enc := strings.ToLower(hf.Get("Content-Encoding")); enc != "" && enc != "identity" && len(body) > 0 {
		var err error
		body, err = compress(enc, body)
		if err != nil {
			return nil, err
		}
	}
	if !hf.HasValue("Transfer-Encoding", "chunked") {
		return body, nil
	}
	var b bytes.Buffer
	if len(body) > 0 {
		fmt.Fprintf(&b, "%x\r\n", len(body))
		b.Write(body)
		b.WriteString("\r\n")
	}
	b.WriteString("0\r\n\r\n")
	return b.Bytes(), nil
}

func compress(enc string, body []byte) ([]byte, error) {
	var b bytes.Buffer
	switch enc {
	case "gzip", "x-gzip":
		w := gzip.NewWriter(&b)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "deflate":
		w := zlib.NewWriter(&b)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "zstd":
		w, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer w.Close()
		return w.EncodeAll(body, nil), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	return b.Bytes(), nil
}

// pick returns content for the changed child and the captured raw content
// otherwise.
func pick(el, child *element.Element, content []byte) []byte {
	if el == child {
		return content
	}
	return el.Raw()
}
