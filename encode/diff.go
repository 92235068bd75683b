package encode

import (
	"bytes"
	"strings"

	"github.com/signadot/rbel/element"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders from and to and returns a line diff of the renderings:
// removed lines are prefixed with "-", added lines with "+" and unchanged
// lines with a space.  The result is empty if the renderings are equal.
// Colors given in opts apply to the diff markers, not the renderings.
func Diff(from, to *element.Element, opts ...EncodeOption) (string, error) {
	es := &EncState{}
	for _, opt := range opts {
		opt(es)
	}
	plain := append(opts[:len(opts):len(opts)], EncodeColors(nil))
	var a, b bytes.Buffer
	if err := Encode(from, &a, plain...); err != nil {
		return "", err
	}
	if err := Encode(to, &b, plain...); err != nil {
		return "", err
	}
	if a.String() == b.String() {
		return "", nil
	}
	dmp := diffpatch.New()
	ac, bc, lines := dmp.DiffLinesToChars(a.String(), b.String())
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ac, bc, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix, attr := " ", SepColor
		switch d.Type {
		case diffpatch.DiffDelete:
			prefix, attr = "-", DeleteColor
		case diffpatch.DiffInsert:
			prefix, attr = "+", InsertColor
		}
		for _, ln := range strings.SplitAfter(d.Text, "\n") {
			if ln == "" {
				continue
			}
			ln = strings.TrimSuffix(ln, "\n")
			if d.Type == diffpatch.DiffEqual {
				out.WriteString(prefix + ln + "\n")
				continue
			}
			out.WriteString(es.color(attr, prefix+ln) + "\n")
		}
	}
	return out.String(), nil
}
