package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
)

var ErrClosed = errors.New("capturer closed")

// Replay is a convert.Capturer that feeds previously recorded messages to a
// converter, in order, when it is initialized.
type Replay struct {
	mu       sync.Mutex
	records  []Record
	messages []*element.Element
	closed   bool
}

func NewReplay(records ...Record) *Replay {
	return &Replay{records: records}
}

// OpenFile reads the records of one capture file.
func OpenFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return NewReplay(recs...), nil
}

// OpenDir reads the records of every .yaml and .yml file below dir, in
// lexical path order.
func OpenDir(dir string) (*Replay, error) {
	var recs []Record
	err := filepath.WalkDir(dir, func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		fRecs, err := ReadRecords(f)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", path, err)
		}
		recs = append(recs, fRecs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewReplay(recs...), nil
}

// Initialize converts every record with c.  Records that cannot be decoded
// are logged and skipped.
func (r *Replay) Initialize(c *convert.Converter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	log := c.Log()
	for i, rec := range r.records {
		raw, err := rec.Raw()
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("skipping undecodable record")
			continue
		}
		sender, receiver, err := rec.Endpoints()
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("ignoring record endpoints")
		}
		r.messages = append(r.messages, c.Convert(raw, sender, receiver))
	}
	log.Debug().Int("messages", len(r.messages)).Msg("replayed capture")
	return nil
}

// Messages returns the messages converted by Initialize.
func (r *Replay) Messages() []*element.Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*element.Element(nil), r.messages...)
}

func (r *Replay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
