package rpath

import (
	"errors"
	"testing"

	"github.com/signadot/rbel/element"

	"github.com/google/go-cmp/cmp"
)

// tree builds
//
//	$ {header: {Version: "1", Host: "a"}, body: {items: ["x", "y"], "odd.name": "z"}}
func tree() *element.Element {
	root := element.New([]byte("message"))
	header := root.NewChildString("header", "header")
	version := header.NewChildString("Version", "1")
	host := header.NewChildString("Host", "a")
	header.AddFacet(element.MapFacet{Entries: []element.Child{
		{Name: "Version", Element: version},
		{Name: "Host", Element: host},
	}})
	body := root.NewChildString("body", "body")
	items := body.NewChildString("items", `["x","y"]`)
	x := items.NewChildString("0", "x")
	y := items.NewChildString("1", "y")
	items.AddFacet(element.ListFacet{Elements: []*element.Element{x, y}})
	odd := body.NewChildString("odd.name", "z")
	body.AddFacet(element.MapFacet{Entries: []element.Child{
		{Name: "items", Element: items},
		{Name: "odd.name", Element: odd},
	}})
	root.AddFacet(element.MapFacet{Entries: []element.Child{
		{Name: "header", Element: header},
		{Name: "body", Element: body},
	}})
	return root
}

func paths(els []*element.Element) []string {
	res := []string{}
	for _, el := range els {
		res = append(res, el.Path())
	}
	return res
}

func TestEval(t *testing.T) {
	nameIs := func(src string) (Filter, error) {
		return FilterFunc(func(el *element.Element) bool {
			return el.Name() == src
		}), nil
	}
	tests := []struct {
		path string
		want []string
	}{
		{path: "$", want: []string{""}},
		{path: "$.header.Version", want: []string{"header.Version"}},
		{path: "$.header['Host']", want: []string{"header.Host"}},
		{path: "$.body.'odd.name'", want: []string{"body['odd.name']"}},
		{path: "$.body['odd.name']", want: []string{"body['odd.name']"}},
		{path: "$.*", want: []string{"header", "body"}},
		{path: "$.body[*]", want: []string{"body.items", "body['odd.name']"}},
		{path: "$.body.items[1]", want: []string{"body.items.1"}},
		{path: "$.body.items.0", want: []string{"body.items.0"}},
		{path: "$.body.items[5]", want: []string{}},
		{path: "$.header[0]", want: []string{}},
		{path: "$..Host", want: []string{"header.Host"}},
		{path: "$..*", want: []string{"header", "header.Version", "header.Host", "body", "body.items", "body.items.0", "body.items.1", "body['odd.name']"}},
		{path: "$.header..", want: []string{"header", "header.Version", "header.Host"}},
		{path: "$..[?(Version)]", want: []string{"header.Version"}},
		{path: "$.nothing.here", want: []string{}},
		{path: "$..nothing", want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			p, err := Compile(tc.path, WithFilter(nameIs))
			if err != nil {
				t.Fatal(err)
			}
			got := paths(p.Eval(tree()))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s (-want +got):\n%s", tc.path, diff)
			}
		})
	}
}

func TestDuplicatesSuppressed(t *testing.T) {
	root := element.New([]byte("x"))
	a := root.NewChildString("a", "a")
	root.AddFacet(element.MapFacet{Entries: []element.Child{{Name: "a", Element: a}}})
	root.AddFacet(element.ListFacet{Elements: []*element.Element{a}})
	got := Find(root, "$..*")
	if len(got) != 1 {
		t.Errorf("expected 1 element, got %d", len(got))
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"header",
		"$.",
		"$[",
		"$['x'",
		"$[abc]",
		"$[?(x]",
		"$[?(x)]",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("expected syntax error, got %v", err)
			}
			if got := Find(tree(), src); len(got) != 0 {
				t.Errorf("expected empty result, got %d", len(got))
			}
		})
	}
}

func TestFacetlessAndNull(t *testing.T) {
	leaf := element.New([]byte("raw"))
	if got := Find(leaf, "$..*"); len(got) != 0 {
		t.Errorf("got %d", len(got))
	}
	null := element.Null()
	if got := Find(null, "$"); len(got) != 1 || got[0] != null {
		t.Errorf("$ on null: got %v", got)
	}
	for _, src := range []string{"$.a", "$..*", "$[0]"} {
		if got := Find(null, src); len(got) != 0 {
			t.Errorf("%s on null: got %d", src, len(got))
		}
	}
}

func TestPathsReusable(t *testing.T) {
	root := tree()
	for _, el := range root.Descendants() {
		got := Find(root, "$."+el.Path())
		if len(got) != 1 || got[0] != el {
			t.Errorf("%s does not select itself: %v", el.Path(), paths(got))
		}
	}
}

func TestString(t *testing.T) {
	for _, src := range []string{
		"$.header.Version",
		"$..Host",
		"$..*",
		"$.body['odd.name']",
		"$.body.items[1]",
	} {
		if got := MustCompile(src).String(); got != src {
			t.Errorf("got %q want %q", got, src)
		}
	}
}
