package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/signadot/rbel/element"

	"github.com/goccy/go-yaml"
)

// Record is one captured message.  Data holds the message text, or its
// base64 encoding when Base64 is set.
type Record struct {
	Sender   string `yaml:"sender,omitempty"`
	Receiver string `yaml:"receiver,omitempty"`
	Data     string `yaml:"data"`
	Base64   bool   `yaml:"base64,omitempty"`
}

// NewRecord creates a record for raw, base64 encoding it unless it is
// text.
func NewRecord(sender, receiver string, raw []byte) Record {
	r := Record{Sender: sender, Receiver: receiver}
	if utf8.Valid(raw) {
		r.Data = string(raw)
	} else {
		r.Data = base64.StdEncoding.EncodeToString(raw)
		r.Base64 = true
	}
	return r
}

// Raw returns the captured bytes.
func (r Record) Raw() ([]byte, error) {
	if !r.Base64 {
		return []byte(r.Data), nil
	}
	return base64.StdEncoding.DecodeString(r.Data)
}

// Endpoints parses the sender and receiver.  Empty endpoints are nil.
func (r Record) Endpoints() (sender, receiver *element.Hostname, err error) {
	parse := func(s string) (*element.Hostname, error) {
		if s == "" {
			return nil, nil
		}
		h, err := element.ParseHostname(s)
		if err != nil {
			return nil, err
		}
		return &h, nil
	}
	if sender, err = parse(r.Sender); err != nil {
		return nil, nil, fmt.Errorf("sender: %w", err)
	}
	if receiver, err = parse(r.Receiver); err != nil {
		return nil, nil, fmt.Errorf("receiver: %w", err)
	}
	return sender, receiver, nil
}

// ReadRecords decodes a stream of YAML documents, one record each.
func ReadRecords(r io.Reader) ([]Record, error) {
	dec := yaml.NewDecoder(r)
	var res []Record
	for i := 0; ; i++ {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		res = append(res, rec)
	}
}

// WriteRecords encodes records as a stream of YAML documents.
func WriteRecords(w io.Writer, records ...Record) error {
	var buf bytes.Buffer
	for i, rec := range records {
		if i > 0 {
			buf.WriteString("---\n")
		}
		d, err := yaml.MarshalWithOptions(rec, yaml.UseLiteralStyleIfMultiline(true))
		if err != nil {
			return err
		}
		buf.Write(d)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
