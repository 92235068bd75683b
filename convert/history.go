package convert

import (
	"slices"
	"sync"

	"github.com/signadot/rbel/element"

	"github.com/rs/zerolog"
)

// History keeps converted messages in arrival order within a byte budget.
type History struct {
	mu       sync.Mutex
	manage   bool
	capacity int64
	size     int64
	entries  []*element.Element
	log      zerolog.Logger
}

// NewHistory returns a history.  Without management it keeps everything;
// with management it evicts the oldest messages to stay within capacity
// bytes, and a zero capacity keeps nothing.
func NewHistory(manage bool, capacity int64, log zerolog.Logger) *History {
	return &History{manage: manage, capacity: capacity, log: log}
}

// Add records el and reports whether it was retained.  A message larger than
// the whole capacity is not retained.
func (h *History) Add(el *element.Element) bool {
	if el == nil || el.IsNull() {
		return false
	}
	sz := int64(el.Size())
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.manage {
		if h.capacity <= 0 {
			return false
		}
		if sz > h.capacity {
			h.log.Debug().Int64("size", sz).Int64("capacity", h.capacity).Msg("message exceeds history capacity")
			return false
		}
	}
	h.entries = append(h.entries, el)
	h.size += sz
	if !h.manage {
		return true
	}
	n := 0
	for h.size > h.capacity {
		h.size -= int64(h.entries[n].Size())
		h.entries[n] = nil
		n++
	}
	if n > 0 {
		h.entries = h.entries[n:]
		h.log.Debug().Int("evicted", n).Int64("size", h.size).Msg("evicted history")
	}
	return true
}

// Messages returns the retained messages, oldest first.
func (h *History) Messages() []*element.Element {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Size returns the retained raw bytes.
func (h *History) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.size = 0
}
