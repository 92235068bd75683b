package plugin

import (
	"bytes"
	"fmt"
	"io"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var httpMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

// HTTP decodes HTTP/1.x requests and responses.
type HTTP struct{}

func (HTTP) Name() string { return "http" }

func (p HTTP) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	raw := el.Raw()
	lineEnd := bytes.IndexByte(raw, '\n')
	if lineEnd < 0 {
		return false, nil
	}
	eol := "\n"
	if lineEnd > 0 && raw[lineEnd-1] == '\r' {
		eol = "\r\n"
	}
	startLine := string(raw[:lineEnd+1-len(eol)])
	isResponse := strings.HasPrefix(startLine, "HTTP/")
	var method, target string
	if !isResponse {
		parts := strings.Split(startLine, " ")
		if len(parts) != 3 || !httpMethods[parts[0]] || !strings.HasPrefix(parts[2], "HTTP/") {
			return false, nil
		}
		method, target = parts[0], parts[1]
	}
	sep := bytes.Index(raw, []byte(eol+eol))
	if sep < 0 {
		return false, fmt.Errorf("no end of header found")
	}
	headerStart := lineEnd + 1
	headerEnd := sep
	if headerEnd < headerStart {
		headerEnd = headerStart - len(eol)
	}
	header, hf := p.header(el, raw[min(headerStart, headerEnd):headerEnd], eol, ctx)
	body := el.NewChild("body", p.body(raw[sep+2*len(eol):], hf, ctx))

	if isResponse {
		_, status, _ := strings.Cut(startLine, " ")
		code, reason, _ := strings.Cut(status, " ")
		n, err := strconv.Atoi(code)
		if err != nil {
			return false, fmt.Errorf("bad status code %q", code)
		}
		f := HTTPResponseFacet{
			ResponseCode: value(el, "responseCode", []byte(code), n),
			StatusCode:   n,
			Request:      ctx.LastRequest(),
		}
		if reason != "" {
			f.ReasonPhrase = value(el, "reasonPhrase", []byte(reason), reason)
		}
		el.AddFacet(f)
	} else {
		path := el.NewChildString("path", target)
		el.AddFacet(HTTPRequestFacet{
			Method: value(el, "method", []byte(method), method),
			Path:   path,
		})
		ctx.Convert(path)
	}
	el.AddFacet(HTTPMessageFacet{Header: header, Body: body})
	if hf.HasValue("Content-Type", "application/x-www-form-urlencoded") {
		addForm(body, ctx)
	}
	ctx.Convert(body)
	return true, nil
}

func (HTTP) header(el *element.Element, raw []byte, eol string, ctx *convert.Context) (*element.Element, HTTPHeaderFacet) {
	header := el.NewChild("header", raw)
	var f HTTPHeaderFacet
	for _, line := range strings.Split(string(raw), eol) {
		if line == "" {
			continue
		}
		name, v, ok := strings.Cut(line, ":")
		if !ok {
			ctx.Log().Debug().Str("line", line).Msg("skipping malformed header line")
			continue
		}
		name = strings.TrimSpace(name)
		v = strings.TrimSpace(v)
		f.Fields = append(f.Fields, element.Child{Name: name, Element: header.NewChildString(name, v)})
	}
	header.AddFacet(f)
	for _, c := range f.Fields {
		ctx.Convert(c.Element)
	}
	return header, f
}

// body undoes transfer and content encodings.  A body that fails to decode
// is kept as captured.
func (HTTP) body(raw []byte, hf HTTPHeaderFacet, ctx *convert.Context) []byte {
	if hf.HasValue("Transfer-Encoding", "chunked") {
		d, err := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(raw)))
		if err != nil {
			ctx.Log().Debug().Err(err).Msg("undecodable chunked body")
			return raw
		}
		raw = d
	} else if cl := hf.Get("Content-Length"); cl != "" {
		if n, err := strconv.Atoi(cl); err == nil && n >= 0 && n < len(raw) {
			raw = raw[:n]
		}
	}
	enc := strings.ToLower(hf.Get("Content-Encoding"))
	if enc == "" || enc == "identity" || len(raw) == 0 {
		return raw
	}
	d, err := decompress(enc, raw)
	if err != nil {
		ctx.Log().Debug().Err(err).Str("encoding", enc).Msg("undecodable body")
		return raw
	}
	return d
}

func decompress(enc string, raw []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch enc {
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(raw))
	case "deflate":
		// HTTP deflate is zlib framed, but raw deflate is common too.
		r, err = zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(raw)), nil
		}
	case "zstd":
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(bytes.NewReader(raw))
		if err == nil {
			defer zr.Close()
			r = zr
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func addForm(body *element.Element, ctx *convert.Context) {
	var f FormFacet
	for _, kv := range strings.Split(body.Content(), "&") {
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
		f.Fields = append(f.Fields, element.Child{Name: name, Element: value(body, name, []byte(v), dv)})
	}
	body.AddFacet(f)
	for _, c := range f.Fields {
		ctx.Convert(c.Element)
	}
}
