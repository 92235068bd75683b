package eval

import (
	"strings"

	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/rpath"
)

// Message summarizes the protocol message an element belongs to.
type Message struct {
	Method     string `expr:"method"`
	URL        string `expr:"url"`
	Path       string `expr:"path"`
	StatusCode int    `expr:"statusCode"`
	Request    bool   `expr:"isRequest"`
	Response   bool   `expr:"isResponse"`
}

// Binding is the only state a criterion can see.  It is built for exactly one
// element.
type Binding struct {
	Key        string   `expr:"key"`
	Path       string   `expr:"path"`
	Content    string   `expr:"content"`
	Value      any      `expr:"value"`
	Kind       string   `expr:"kind"`
	Facets     []string `expr:"facets"`
	Note       string   `expr:"note"`
	Parent     string   `expr:"parent"`
	Size       int      `expr:"size"`
	IsRequest  bool     `expr:"isRequest"`
	IsResponse bool     `expr:"isResponse"`
	Message    Message  `expr:"message"`
	Request    Message  `expr:"request"`

	// path helpers.  Paths starting with "$" are resolved against the
	// element's message, paths starting with "@" against the element itself.
	Get      func(string) string `expr:"get"`
	Has      func(string) bool   `expr:"has"`
	Count    func(string) int    `expr:"count"`
	HasFacet func(string) bool   `expr:"hasFacet"`
}

func summaryOf(el *element.Element) (element.Summary, bool) {
	if el == nil {
		return element.Summary{}, false
	}
	s, ok := element.FacetOf[element.Summarizer](el)
	if !ok {
		return element.Summary{}, false
	}
	return s.Summary(), true
}

func messageOf(s element.Summary) Message {
	return Message{
		Method:     s.Method,
		URL:        s.URL,
		Path:       s.Path,
		StatusCode: s.StatusCode,
		Request:    s.Request,
		Response:   s.Response,
	}
}

// Bind builds the binding record for el.
func (e *Evaluator) Bind(el *element.Element) *Binding {
	b := &Binding{
		Key:     el.Name(),
		Path:    el.Path(),
		Content: el.Content(),
		Size:    el.Size(),
	}
	if v, ok := element.ValueOf(el); ok {
		b.Value = v
		if s, ok := v.(string); ok {
			b.Content = s
		}
	}
	for _, k := range el.Kinds() {
		b.Facets = append(b.Facets, string(k))
	}
	if len(b.Facets) > 0 {
		b.Kind = b.Facets[0]
	}
	if n, ok := el.Note(); ok {
		b.Note = n
	}
	if p := el.Parent(); p != nil {
		b.Parent = p.Name()
	}
	root := el.Root()
	if s, ok := summaryOf(root); ok {
		b.Message = messageOf(s)
		b.IsRequest = s.Request
		b.IsResponse = s.Response
		if s.Request {
			b.Request = b.Message
		} else if rs, ok := summaryOf(s.Paired); ok {
			b.Request = messageOf(rs)
		}
	}
	find := func(p string) []*element.Element {
		if strings.HasPrefix(p, "@") {
			return e.find(el, "$"+p[1:])
		}
		return e.find(root, p)
	}
	b.Get = func(p string) string {
		res := find(p)
		if len(res) == 0 {
			return ""
		}
		if v, ok := element.ValueOf(res[0]); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return res[0].Content()
	}
	b.Has = func(p string) bool { return len(find(p)) > 0 }
	b.Count = func(p string) int { return len(find(p)) }
	b.HasFacet = func(k string) bool { return el.HasFacet(element.Kind(k)) }
	return b
}

func (e *Evaluator) find(root *element.Element, p string) []*element.Element {
	path, err := e.CompilePath(p)
	if err != nil {
		e.log.Debug().Err(err).Str("path", p).Msg("unresolvable path")
		return nil
	}
	return path.Eval(root)
}

// CompilePath compiles p with criterion filters enabled.
func (e *Evaluator) CompilePath(p string) (*rpath.Path, error) {
	if v, ok := e.paths.Load(p); ok {
		c := v.(compiledPath)
		return c.path, c.err
	}
	opts := []rpath.Option{rpath.WithFilter(e.FilterCompiler())}
	if e.cfg.PathDebug {
		opts = append(opts, rpath.WithDebug(e.log))
	}
	path, err := rpath.Compile(p, opts...)
	e.paths.Store(p, compiledPath{path: path, err: err})
	return path, err
}

type compiledPath struct {
	path *rpath.Path
	err  error
}
