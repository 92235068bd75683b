package convert

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const (
	linesKind element.Kind = "test.lines"
	pairKind  element.Kind = "test.pair"
	tagKind   element.Kind = "test.tag"
)

type linesFacet struct{ element.ListFacet }

func (linesFacet) Kind() element.Kind { return linesKind }

// linesPlugin splits multi-line content into one child per line.
type linesPlugin struct{}

func (linesPlugin) Name() string { return "lines" }
func (linesPlugin) Convert(el *element.Element, ctx *Context) (bool, error) {
	if !bytes.Contains(el.Raw(), []byte("\n")) {
		return false, nil
	}
	var f linesFacet
	for i, line := range strings.Split(el.Content(), "\n") {
		f.Elements = append(f.Elements, el.NewChildString(fmt.Sprint(i), line))
	}
	el.AddFacet(f)
	for _, c := range f.Elements {
		ctx.Convert(c)
	}
	return true, nil
}

type pairFacet struct{ element.MapFacet }

func (pairFacet) Kind() element.Kind { return pairKind }

// pairPlugin decodes "k=v".
type pairPlugin struct{}

func (pairPlugin) Name() string { return "pair" }
func (pairPlugin) Convert(el *element.Element, ctx *Context) (bool, error) {
	if strings.Contains(el.Content(), "\n") {
		return false, nil
	}
	k, v, ok := strings.Cut(el.Content(), "=")
	if !ok {
		return false, nil
	}
	c := el.NewChildString(k, v)
	el.AddFacet(pairFacet{element.MapFacet{Entries: []element.Child{{Name: k, Element: c}}}})
	ctx.Convert(c)
	return true, nil
}

type tagFacet struct{ tag string }

func (tagFacet) Kind() element.Kind { return tagKind }

type failingPlugin struct {
	panics bool
}

func (p failingPlugin) Name() string { return "failing" }
func (p failingPlugin) Convert(el *element.Element, ctx *Context) (bool, error) {
	el.AddFacet(tagFacet{tag: "partial"})
	if p.panics {
		panic("boom")
	}
	return false, errors.New("bad input")
}

func newConverter(cfg *config.Config, plugins ...Plugin) *Converter {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return New(Setup{Config: cfg, Log: zerolog.Nop(), Plugins: plugins})
}

func TestPluginsAreAdditive(t *testing.T) {
	c := newConverter(nil, linesPlugin{}, failingPlugin{panics: true}, failingPlugin{}, pairPlugin{})
	el := c.Convert([]byte("a=1\nb=2"), nil, nil)
	if diff := cmp.Diff([]element.Kind{linesKind, tagKind}, el.Kinds()); diff != "" {
		t.Errorf("root kinds (-want +got):\n%s", diff)
	}
	line, ok := el.Item(1)
	if !ok {
		t.Fatal("no line 1")
	}
	if diff := cmp.Diff([]element.Kind{tagKind, pairKind}, line.Kinds()); diff != "" {
		t.Errorf("line kinds (-want +got):\n%s", diff)
	}
	b, ok := line.First("b")
	if !ok || b.Content() != "2" || b.Path() != "1.b" {
		t.Errorf("unexpected b: %v", b)
	}
}

func TestUnrecognized(t *testing.T) {
	c := newConverter(nil, pairPlugin{})
	el := c.Convert([]byte("nothing here"), nil, nil)
	if len(el.Facets()) != 0 {
		t.Errorf("unexpected facets %v", el.Kinds())
	}
}

func TestNullInput(t *testing.T) {
	c := newConverter(nil, pairPlugin{})
	a := c.Convert(nil, nil, nil)
	b := c.Convert(nil, nil, nil)
	if !a.IsNull() || !b.IsNull() {
		t.Fatal("expected null elements")
	}
	if len(a.Facets()) != 0 || len(b.Children()) != 0 {
		t.Error("null element has content")
	}
	if c.History().Len() != 0 {
		t.Error("null element recorded in history")
	}
}

func TestListenersOrder(t *testing.T) {
	c := newConverter(nil, linesPlugin{}, pairPlugin{})
	var got []string
	var mu sync.Mutex
	record := func(name string) Listener {
		return ListenerFunc(func(el *element.Element, ctx *Context) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+"@"+el.Path())
		})
	}
	c.RegisterListener(pairKind, record("pair"))
	c.RegisterListener(element.AnyKind, record("any"))
	c.RegisterListener(linesKind, record("lines"))
	c.Convert([]byte("a=1\nb=2"), nil, nil)
	want := []string{
		"any@", "lines@",
		"pair@0", "any@0",
		"any@0.a",
		"pair@1", "any@1",
		"any@1.b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestListenerPanicContained(t *testing.T) {
	c := newConverter(nil, pairPlugin{})
	c.RegisterListener(element.AnyKind, ListenerFunc(func(*element.Element, *Context) { panic("boom") }))
	noted := 0
	c.RegisterListener(element.AnyKind, ListenerFunc(func(el *element.Element, _ *Context) {
		el.SetNote("seen")
		noted++
	}))
	el := c.Convert([]byte("k=v"), nil, nil)
	if noted != 2 {
		t.Errorf("expected 2 notes, got %d", noted)
	}
	if n, _ := el.Note(); n != "seen" {
		t.Errorf("note %q", n)
	}
}

func TestMapperRewritesBeforeParsing(t *testing.T) {
	c := newConverter(nil, pairPlugin{})
	c.RegisterMapper(element.ShapeText, MapperFunc(func(el *element.Element, ctx *Context) *element.Element {
		return element.New(bytes.ReplaceAll(el.Raw(), []byte("old.host"), []byte("new.host")))
	}))
	c.RegisterMapper(element.ShapeBinary, MapperFunc(func(el *element.Element, ctx *Context) *element.Element {
		t.Error("binary mapper applied to text")
		return el
	}))
	c.RegisterMapper(element.ShapeAny, MapperFunc(func(el *element.Element, ctx *Context) *element.Element {
		panic("contained")
	}))
	el := c.Convert([]byte("Host=old.host"), nil, nil)
	host, ok := el.First("Host")
	if !ok || host.Content() != "new.host" {
		t.Errorf("unexpected host %v", host)
	}
}

func TestMaxDepth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxDepth = 2
	c := newConverter(cfg, pairPlugin{})
	el := c.Convert([]byte("a=b=c=d=e"), nil, nil)
	var deepest *element.Element
	el.Visit(func(x *element.Element) bool {
		deepest = x
		return true
	})
	if deepest.Path() != "a.b.c" {
		t.Fatalf("unexpected deepest element %s", deepest.Path())
	}
	if len(deepest.Facets()) != 0 {
		t.Error("element beyond the maximum depth was converted")
	}
}

func TestSkipParsingLargeMessages(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SkipParsingLargerThanMB = 1
	c := newConverter(cfg, pairPlugin{})
	big := append([]byte("k="), bytes.Repeat([]byte("x"), config.MiB)...)
	if el := c.Convert(big, nil, nil); len(el.Facets()) != 0 {
		t.Error("large message was parsed")
	}
	if el := c.Convert([]byte("k=v"), nil, nil); len(el.Facets()) == 0 {
		t.Error("small message was not parsed")
	}
}

func TestTCPIPFacet(t *testing.T) {
	c := newConverter(nil)
	s := element.Hostname{Host: "client", Port: 40000}
	r := element.Hostname{Host: "server", Port: 443}
	c.Convert([]byte("first"), nil, nil)
	el := c.Convert([]byte("second"), &s, &r)
	f, ok := element.FacetOf[element.TCPIPFacet](el)
	if !ok {
		t.Fatal("no tcpip facet")
	}
	if f.Sequence != 1 || f.Receiver.Content() != "server:443" {
		t.Errorf("unexpected facet %+v", f)
	}
}

type requestFacet struct{}

func (requestFacet) Kind() element.Kind { return "test.request" }
func (requestFacet) Summary() element.Summary {
	return element.Summary{Request: true}
}

type requestPlugin struct{}

func (requestPlugin) Name() string { return "request" }
func (requestPlugin) Convert(el *element.Element, ctx *Context) (bool, error) {
	if !strings.HasPrefix(el.Content(), "GET") {
		return false, nil
	}
	el.AddFacet(requestFacet{})
	return true, nil
}

func TestLastRequest(t *testing.T) {
	c := newConverter(nil, requestPlugin{})
	if c.LastRequest() != nil {
		t.Fatal("unexpected request")
	}
	req := c.Convert([]byte("GET /"), nil, nil)
	c.Convert([]byte("200 OK"), nil, nil)
	if c.LastRequest() != req {
		t.Error("expected last request")
	}
}

func TestConcurrentConvert(t *testing.T) {
	c := newConverter(nil, linesPlugin{}, pairPlugin{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Convert([]byte(fmt.Sprintf("a=%d\nb=%d", i, i)), nil, nil)
		}(i)
	}
	wg.Wait()
	if c.History().Len() != 16 {
		t.Errorf("expected 16 messages, got %d", c.History().Len())
	}
}
