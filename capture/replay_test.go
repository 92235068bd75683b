package capture

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const captureFile = `sender: client.example:51234
receiver: api.example:443
data: |
  GET /status HTTP/1.1
  Host: api.example
---
sender: api.example:443
receiver: client.example:51234
data: AAEC/w==
base64: true
`

func TestReadRecords(t *testing.T) {
	recs, err := ReadRecords(strings.NewReader(captureFile))
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{{
		Sender:   "client.example:51234",
		Receiver: "api.example:443",
		Data:     "GET /status HTTP/1.1\nHost: api.example\n",
	}, {
		Sender:   "api.example:443",
		Receiver: "client.example:51234",
		Data:     "AAEC/w==",
		Base64:   true,
	}}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	raw, err := recs[1].Raw()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte{0, 1, 2, 0xff}) {
		t.Errorf("raw %v", raw)
	}
	sender, receiver, err := recs[0].Endpoints()
	if err != nil {
		t.Fatal(err)
	}
	if sender.Port != 51234 || receiver.Host != "api.example" {
		t.Errorf("endpoints %v %v", sender, receiver)
	}
}

func TestWriteRecords(t *testing.T) {
	recs := []Record{
		NewRecord("a:1", "b:2", []byte("ping")),
		NewRecord("", "", []byte{0xff, 0xfe}),
	}
	if !recs[1].Base64 || recs[0].Base64 {
		t.Fatalf("unexpected encodings %+v", recs)
	}
	var buf bytes.Buffer
	if err := WriteRecords(&buf, recs...); err != nil {
		t.Fatal(err)
	}
	got, err := ReadRecords(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "01.yaml"), []byte(captureFile), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := OpenDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("got %d records", r.Len())
	}
	c := convert.New(convert.Setup{Config: config.DefaultConfig(), Log: zerolog.Nop()})
	if err := r.Initialize(c); err != nil {
		t.Fatal(err)
	}
	msgs := r.Messages()
	if len(msgs) != 2 || c.History().Len() != 2 {
		t.Fatalf("got %d messages, %d in history", len(msgs), c.History().Len())
	}
	f, ok := element.FacetOf[element.TCPIPFacet](msgs[1])
	if !ok {
		t.Fatal("no tcpip facet")
	}
	if f.Sequence != 1 || f.Sender.Content() != "api.example:443" {
		t.Errorf("tcpip %+v", f)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.Initialize(c); !errors.Is(err, ErrClosed) {
		t.Errorf("initialize after close: %v", err)
	}
}

func TestOpenFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("data: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Errorf("expected error")
	}
}
