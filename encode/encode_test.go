package encode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"

	"github.com/google/go-cmp/cmp"
)

// message builds
//
//	$ {header: {Host: "a"}, body: "\xff\xfe", token: "secret"}
func message(host string) *element.Element {
	root := element.New([]byte("message"))
	header := root.NewChildString("header", "Host: "+host)
	h := header.NewChildString("Host", host)
	header.AddFacet(element.MapFacet{Entries: []element.Child{{Name: "Host", Element: h}}})
	body := root.NewChild("body", []byte{0xff, 0xfe})
	token := root.NewChildString("token", "secret")
	root.AddFacet(element.MapFacet{Entries: []element.Child{
		{Name: "header", Element: header},
		{Name: "body", Element: body},
		{Name: "token", Element: token},
	}})
	return root
}

type shadeToken struct{}

func (shadeToken) Shade(el *element.Element) (string, bool) {
	if el.Name() == "token" {
		return "<hidden>", true
	}
	return "", false
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		opts []EncodeOption
		note string
		want string
	}{{
		name: "plain",
		want: `$
  header
    Host: "a"
  body: <2 bytes>
  token: "secret"`,
	}, {
		name: "facets",
		opts: []EncodeOption{EncodeFacets(true)},
		want: `$ [map]
  header [map]
    Host: "a"
  body: <2 bytes>
  token: "secret"`,
	}, {
		name: "depth",
		opts: []EncodeOption{Depth(1)},
		want: `$
  header: "Host: a"
  body: <2 bytes>
  token: "secret"`,
	}, {
		name: "shading and notes",
		opts: []EncodeOption{EncodeShading(shadeToken{})},
		note: "host header",
		want: `$
  header
    Host: "a" # host header
  body: <2 bytes>
  token: "<hidden>"`,
	}, {
		name: "notes off",
		opts: []EncodeOption{EncodeNotes(false), MaxValue(3)},
		note: "host header",
		want: `$
  header
    Host: "a"
  body: <2 bytes>
  token: "sec..."`,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := message("a")
			if tc.note != "" {
				h, _ := msg.First("header")
				host, _ := h.First("Host")
				host.SetNote(tc.note)
			}
			if diff := cmp.Diff(tc.want, MustString(msg, tc.opts...)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeNull(t *testing.T) {
	if got := MustString(element.Null()); got != "null" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeColors(t *testing.T) {
	plain := MustString(message("a"))
	colored := MustString(message("a"), EncodeColors(NewColors()))
	if plain == colored || !strings.Contains(colored, "\x1b[") {
		t.Errorf("colors not applied:\n%s", colored)
	}
}

func TestColorsFor(t *testing.T) {
	var buf bytes.Buffer
	if ColorsFor(&buf, config.ColorsAuto) != nil {
		t.Errorf("colors for a buffer in auto mode")
	}
	if ColorsFor(&buf, config.ColorsNever) != nil {
		t.Errorf("colors in never mode")
	}
	if ColorsFor(&buf, config.ColorsAlways) == nil {
		t.Errorf("no colors in always mode")
	}
}

func TestDiff(t *testing.T) {
	d, err := Diff(message("a"), message("a"))
	if err != nil {
		t.Fatal(err)
	}
	if d != "" {
		t.Errorf("diff of equal trees: %q", d)
	}
	d, err = Diff(message("a"), message("b"))
	if err != nil {
		t.Fatal(err)
	}
	want := `  header
-    Host: "a"
+    Host: "b"
`
	if !strings.Contains(d, want) {
		t.Errorf("diff missing host change:\n%s", d)
	}
	if !strings.HasPrefix(d, " $\n") {
		t.Errorf("diff does not start with the unchanged root:\n%s", d)
	}
}
