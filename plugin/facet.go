package plugin

import (
	"strings"

	"github.com/signadot/rbel/element"
)

const (
	HTTPMessageKind  element.Kind = "http.message"
	HTTPRequestKind  element.Kind = "http.request"
	HTTPResponseKind element.Kind = "http.response"
	HTTPHeaderKind   element.Kind = "http.header"
	FormKind         element.Kind = "http.form"
	URIKind          element.Kind = "uri"
	BearerKind       element.Kind = "bearer"
	JSONKind         element.Kind = "json"
	XMLKind          element.Kind = "xml"
	JWTKind          element.Kind = "jwt"
	SignatureKind    element.Kind = "jwt.signature"
	JWEKind          element.Kind = "jwe"
	EncryptionKind   element.Kind = "jwe.encryptionInfo"
	Base64Kind       element.Kind = "base64"
	X509Kind         element.Kind = "x509"
	CBORKind         element.Kind = "cbor"
	ASN1Kind         element.Kind = "asn1"
)

// children builds a child list skipping absent elements.
func children(pairs ...any) []element.Child {
	var res []element.Child
	for i := 0; i+1 < len(pairs); i += 2 {
		el, _ := pairs[i+1].(*element.Element)
		if el == nil {
			continue
		}
		res = append(res, element.Child{Name: pairs[i].(string), Element: el})
	}
	return res
}

type HTTPMessageFacet struct {
	Header *element.Element
	Body   *element.Element
}

func (HTTPMessageFacet) Kind() element.Kind { return HTTPMessageKind }
func (f HTTPMessageFacet) Children() []element.Child {
	return children("header", f.Header, "body", f.Body)
}

type HTTPRequestFacet struct {
	Method *element.Element
	Path   *element.Element
}

func (HTTPRequestFacet) Kind() element.Kind { return HTTPRequestKind }
func (f HTTPRequestFacet) Children() []element.Child {
	return children("method", f.Method, "path", f.Path)
}

func (f HTTPRequestFacet) Summary() element.Summary {
	target := f.Path.Content()
	path, _, _ := strings.Cut(target, "?")
	return element.Summary{
		Method:  f.Method.Content(),
		URL:     target,
		Path:    path,
		Request: true,
	}
}

type HTTPResponseFacet struct {
	ResponseCode *element.Element
	ReasonPhrase *element.Element
	StatusCode   int
	// Request is the request this response answers, if known.
	Request *element.Element
}

func (HTTPResponseFacet) Kind() element.Kind { return HTTPResponseKind }
func (f HTTPResponseFacet) Children() []element.Child {
	return children("responseCode", f.ResponseCode, "reasonPhrase", f.ReasonPhrase)
}

func (f HTTPResponseFacet) Summary() element.Summary {
	s := element.Summary{StatusCode: f.StatusCode, Response: true, Paired: f.Request}
	if f.Request != nil {
		if req, ok := element.FacetOf[HTTPRequestFacet](f.Request); ok {
			rs := req.Summary()
			s.Method, s.URL, s.Path = rs.Method, rs.URL, rs.Path
		}
	}
	return s
}

// HTTPHeaderFacet keeps header fields in message order.  Repeated fields
// appear once per occurrence.
type HTTPHeaderFacet struct {
	Fields []element.Child
}

func (HTTPHeaderFacet) Kind() element.Kind          { return HTTPHeaderKind }
func (f HTTPHeaderFacet) Children() []element.Child { return f.Fields }

// Values returns the values of the fields named name, ignoring case.
func (f HTTPHeaderFacet) Values(name string) []string {
	var res []string
	for _, c := range f.Fields {
		if strings.EqualFold(c.Name, name) {
			res = append(res, c.Element.Content())
		}
	}
	return res
}

// Get returns the first value of the field named name, ignoring case.
func (f HTTPHeaderFacet) Get(name string) string {
	if vs := f.Values(name); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// HasValue reports whether some field named name contains value, ignoring
// case.
func (f HTTPHeaderFacet) HasValue(name, value string) bool {
	for _, v := range f.Values(name) {
		if strings.Contains(strings.ToLower(v), strings.ToLower(value)) {
			return true
		}
	}
	return false
}

type FormFacet struct {
	Fields []element.Child
}

func (FormFacet) Kind() element.Kind          { return FormKind }
func (f FormFacet) Children() []element.Child { return f.Fields }

type URIFacet struct {
	BasicPath *element.Element
	Params    []element.Child
}

func (URIFacet) Kind() element.Kind { return URIKind }
func (f URIFacet) Children() []element.Child {
	return append(append([]element.Child(nil), f.Params...), children("basicPath", f.BasicPath)...)
}

type BearerFacet struct {
	Token *element.Element
}

func (BearerFacet) Kind() element.Kind          { return BearerKind }
func (f BearerFacet) Children() []element.Child { return children("BearerToken", f.Token) }

// JSONFacet is attached to JSON objects and arrays.  Scalars inside them
// carry an element.ValueFacet.
type JSONFacet struct {
	Array   bool
	Entries []element.Child
	Elems   []*element.Element
}

func (JSONFacet) Kind() element.Kind { return JSONKind }
func (f JSONFacet) Children() []element.Child {
	if f.Array {
		return element.ListFacet{Elements: f.Elems}.Children()
	}
	return f.Entries
}
func (f JSONFacet) Items() []*element.Element { return f.Elems }

type XMLFacet struct {
	Space   string
	Tag     string
	Entries []element.Child
}

func (XMLFacet) Kind() element.Kind          { return XMLKind }
func (f XMLFacet) Children() []element.Child { return f.Entries }

type JWTFacet struct {
	Header    *element.Element
	Body      *element.Element
	Signature *element.Element
}

func (JWTFacet) Kind() element.Kind { return JWTKind }
func (f JWTFacet) Children() []element.Child {
	return children("header", f.Header, "body", f.Body, "signature", f.Signature)
}

type SignatureFacet struct {
	Valid         bool
	KeyName       string
	IsValid       *element.Element
	VerifiedUsing *element.Element
}

func (SignatureFacet) Kind() element.Kind { return SignatureKind }
func (f SignatureFacet) Children() []element.Child {
	return children("isValid", f.IsValid, "verifiedUsing", f.VerifiedUsing)
}

type JWEFacet struct {
	Header         *element.Element
	Body           *element.Element
	EncryptionInfo *element.Element
}

func (JWEFacet) Kind() element.Kind { return JWEKind }
func (f JWEFacet) Children() []element.Child {
	return children("header", f.Header, "body", f.Body, "encryptionInfo", f.EncryptionInfo)
}

type EncryptionInfoFacet struct {
	Decrypted      bool
	KeyName        string
	WasDecryptable *element.Element
	DecryptedUsing *element.Element
}

func (EncryptionInfoFacet) Kind() element.Kind { return EncryptionKind }
func (f EncryptionInfoFacet) Children() []element.Child {
	return children("wasDecryptable", f.WasDecryptable, "decryptedUsingKeyWithId", f.DecryptedUsing)
}

type Base64Facet struct {
	Decoded *element.Element
}

func (Base64Facet) Kind() element.Kind          { return Base64Kind }
func (f Base64Facet) Children() []element.Child { return children("decoded", f.Decoded) }

type CBORFacet struct {
	Array   bool
	Entries []element.Child
	Elems   []*element.Element
}

func (CBORFacet) Kind() element.Kind { return CBORKind }
func (f CBORFacet) Children() []element.Child {
	if f.Array {
		return element.ListFacet{Elements: f.Elems}.Children()
	}
	return f.Entries
}
func (f CBORFacet) Items() []*element.Element { return f.Elems }

// value is a scalar leaf with a decoded value.
func value(parent *element.Element, name string, raw []byte, v any) *element.Element {
	el := parent.NewChild(name, raw)
	el.AddFacet(element.ValueFacet{V: v})
	return el
}
