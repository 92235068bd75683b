package plugin

import (
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
)

func childNames(el *element.Element) []string {
	var res []string
	for _, c := range el.Children() {
		res = append(res, c.Name)
	}
	return res
}

func TestJSON(t *testing.T) {
	c := newConverter(t, nil)
	el := convertString(t, c, `{"z":1,"a":[true,null,"x"],"u":"/cb?code=42","o":{"k":"v"}}`)
	if diff := cmp.Diff([]string{"z", "a", "u", "o"}, childNames(el)); diff != "" {
		t.Errorf("member order (-want +got):\n%s", diff)
	}
	tests := []struct {
		path string
		want any
	}{
		{"$.z", float64(1)},
		{"$.a[0]", true},
		{"$.a[1]", nil},
		{"$.a[2]", "x"},
		{"$.o.k", "v"},
	}
	for _, tc := range tests {
		v, ok := element.ValueOf(at(t, el, tc.path))
		if !ok || v != tc.want {
			t.Errorf("%s: got %v (%v), want %v", tc.path, v, ok, tc.want)
		}
	}
	if got := at(t, el, "$.u.code").Content(); got != "42" {
		t.Errorf("string member not converted: %q", got)
	}
	if el := convertString(t, c, `{"broken":`); el.HasFacet(JSONKind) {
		t.Errorf("invalid json decoded")
	}
	if el := convertString(t, c, `"just a string"`); el.HasFacet(JSONKind) {
		t.Errorf("json scalar decoded")
	}
}

func TestXML(t *testing.T) {
	el := convertString(t, newConverter(t, nil),
		`<?xml version="1.0"?><root id="7"><user><name>bob</name></user><note>hi</note>tail</root>`)
	f, ok := element.FacetOf[XMLFacet](el)
	if !ok {
		t.Fatalf("not decoded as xml, kinds %v", el.Kinds())
	}
	if f.Tag != "root" {
		t.Errorf("tag %q", f.Tag)
	}
	if diff := cmp.Diff([]string{"id", "user", "note", "text"}, childNames(el)); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	if got := at(t, el, "$.user").Content(); got != "<user><name>bob</name></user>" {
		t.Errorf("user raw %q", got)
	}
	if got := at(t, el, "$.user.name.text").Content(); got != "bob" {
		t.Errorf("name %q", got)
	}
	if got := at(t, el, "$.text").Content(); got != "tail" {
		t.Errorf("text %q", got)
	}
}

func TestURI(t *testing.T) {
	el := convertString(t, newConverter(t, nil), "https://h.example/p?q=1&r=a+b#frag")
	if got := at(t, el, "$.basicPath").Content(); got != "https://h.example/p" {
		t.Errorf("basic path %q", got)
	}
	if v, _ := element.ValueOf(at(t, el, "$.r")); v != "a b" {
		t.Errorf("r %v", v)
	}
	if el := convertString(t, newConverter(t, nil), "ftp://h/p"); el.HasFacet(URIKind) {
		t.Errorf("ftp url decoded")
	}
}

func TestBase64(t *testing.T) {
	c := newConverter(t, nil)
	el := convertString(t, c, base64.RawURLEncoding.EncodeToString([]byte(`{"a":"b"}`)))
	if got := at(t, el, "$.decoded.a").Content(); got != "b" {
		t.Errorf("decoded.a %q", got)
	}
	if el := convertString(t, c, base64.StdEncoding.EncodeToString([]byte("Hello, world"))); el.HasFacet(Base64Kind) {
		t.Errorf("non-json payload decoded")
	}
}

func TestX509(t *testing.T) {
	der := selfSigned(t, newECKey(t), "leaf")
	for name, raw := range map[string][]byte{
		"pem":    pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		"der":    der,
		"base64": []byte(base64.StdEncoding.EncodeToString(der)),
	} {
		t.Run(name, func(t *testing.T) {
			el := newConverter(t, nil).Convert(raw, nil, nil)
			if !el.HasFacet(X509Kind) {
				t.Fatalf("not decoded, kinds %v", el.Kinds())
			}
			want := map[string]string{
				"subject":            "CN=leaf",
				"issuer":             "CN=leaf",
				"serialNumber":       "4711",
				"notBefore":          "2024-01-01T00:00:00Z",
				"signatureAlgorithm": "ECDSA-SHA256",
				"publicKeyAlgorithm": "ECDSA",
			}
			for child, w := range want {
				if got := at(t, el, "$."+child).Content(); got != w {
					t.Errorf("%s: got %q, want %q", child, got, w)
				}
			}
		})
	}
}

func TestCBOR(t *testing.T) {
	raw, err := cbor.Marshal(map[string]any{
		"b": 1,
		"a": []any{"x", 2},
		"j": `{"k":"v"}`,
	})
	if err != nil {
		t.Fatal(err)
	}
	el := newConverter(t, nil).Convert(raw, nil, nil)
	if !el.HasFacet(CBORKind) {
		t.Fatalf("not decoded, kinds %v", el.Kinds())
	}
	if diff := cmp.Diff([]string{"a", "b", "j"}, childNames(el)); diff != "" {
		t.Errorf("key order (-want +got):\n%s", diff)
	}
	if v, _ := element.ValueOf(at(t, el, "$.b")); v != uint64(1) {
		t.Errorf("b %v (%T)", v, v)
	}
	if got := at(t, el, "$.a[0]").Content(); got != "x" {
		t.Errorf("a[0] %q", got)
	}
	if got := at(t, el, "$.j.k").Content(); got != "v" {
		t.Errorf("text string not converted: %q", got)
	}
}

func TestASN1(t *testing.T) {
	type inner struct {
		Flag bool
	}
	innerDER, err := asn1.Marshal(inner{Flag: true})
	if err != nil {
		t.Fatal(err)
	}
	type outer struct {
		N   int
		S   string
		OID asn1.ObjectIdentifier
		Oct []byte
	}
	der, err := asn1.Marshal(outer{N: 42, S: "hello", OID: asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}, Oct: innerDER})
	if err != nil {
		t.Fatal(err)
	}

	if el := newConverter(t, nil).Convert(der, nil, nil); el.HasFacet(ASN1Kind) {
		t.Errorf("decoded without activation")
	}

	cfg := config.DefaultConfig()
	cfg.ActivateASN1 = true
	el := newConverter(t, cfg).Convert(der, nil, nil)
	if !el.HasFacet(ASN1Kind) {
		t.Fatalf("not decoded, kinds %v", el.Kinds())
	}
	tests := []struct {
		path string
		want any
	}{
		{"$[0]", int64(42)},
		{"$[1]", "hello"},
		{"$[2]", "1.2.840.10045.2.1"},
		{"$[3].content[0]", true},
	}
	for _, tc := range tests {
		if v, _ := element.ValueOf(at(t, el, tc.path)); v != tc.want {
			t.Errorf("%s: got %v (%T), want %v", tc.path, v, v, tc.want)
		}
	}
	if el := newConverter(t, cfg).Convert(append(der, 0), nil, nil); el.HasFacet(ASN1Kind) {
		t.Errorf("trailing data accepted")
	}
}
