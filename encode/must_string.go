package encode

import (
	"bytes"
	"strings"

	"github.com/signadot/rbel/element"
)

func MustString(el *element.Element, opts ...EncodeOption) string {
	buf := bytes.NewBuffer(nil)
	if err := Encode(el, buf, opts...); err != nil {
		panic(err)
	}
	return strings.TrimSpace(buf.String())
}
