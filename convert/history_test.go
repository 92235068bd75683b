package convert

import (
	"bytes"
	"testing"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func msg(n int, b byte) *element.Element {
	return element.New(bytes.Repeat([]byte{b}, n))
}

func contents(h *History) []string {
	res := []string{}
	for _, el := range h.Messages() {
		res = append(res, el.Content()[:1])
	}
	return res
}

func TestHistoryEviction(t *testing.T) {
	h := NewHistory(true, 10, zerolog.Nop())
	for _, el := range []*element.Element{msg(4, 'a'), msg(4, 'b'), msg(4, 'c')} {
		if !h.Add(el) {
			t.Fatal("expected retention")
		}
	}
	if diff := cmp.Diff([]string{"b", "c"}, contents(h)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if h.Size() != 8 {
		t.Errorf("size %d", h.Size())
	}
	if h.Add(msg(11, 'x')) {
		t.Error("oversized message retained")
	}
	if diff := cmp.Diff([]string{"b", "c"}, contents(h)); diff != "" {
		t.Errorf("oversized message evicted history (-want +got):\n%s", diff)
	}
	h.Add(msg(10, 'd'))
	if diff := cmp.Diff([]string{"d"}, contents(h)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	h.Clear()
	if h.Len() != 0 || h.Size() != 0 {
		t.Error("clear left entries")
	}
}

func TestHistoryUnmanaged(t *testing.T) {
	h := NewHistory(false, 0, zerolog.Nop())
	for i := 0; i < 5; i++ {
		h.Add(msg(100, 'a'))
	}
	if h.Len() != 5 {
		t.Errorf("expected 5 messages, got %d", h.Len())
	}
}

func TestZeroCapacityKeepsNothing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BufferSizeMB = 0
	c := newConverter(cfg, linesPlugin{}, pairPlugin{})
	el := c.Convert([]byte("a=1\nb=2\nc=3"), nil, nil)
	if got := c.History().Messages(); len(got) != 0 {
		t.Errorf("expected empty history, got %d", len(got))
	}
	if n := len(el.Descendants()); n != 6 {
		t.Errorf("expected a fully built tree, got %d descendants", n)
	}

	cfg = config.DefaultConfig()
	buffered := newConverter(cfg, linesPlugin{}, pairPlugin{})
	other := buffered.Convert([]byte("a=1\nb=2\nc=3"), nil, nil)
	if len(other.Descendants()) != len(el.Descendants()) {
		t.Error("buffering changed the tree")
	}
	if buffered.History().Len() != 1 {
		t.Error("expected one message in history")
	}
}
