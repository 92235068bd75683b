package plugin

import (
	encasn1 "encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"

	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var errASN1 = errors.New("malformed DER")

const (
	asn1Constructed   casn1.Tag = 0x20
	asn1NumericString casn1.Tag = 18
	asn1VisibleString casn1.Tag = 26
)

// ASN1Facet is attached to every DER item of a decoded tree.  Constructed
// items list their members by index; OCTET STRING and BIT STRING items have
// a content child holding the payload.
type ASN1Facet struct {
	Tag     casn1.Tag
	Elems   []*element.Element
	Content *element.Element
}

func (ASN1Facet) Kind() element.Kind { return ASN1Kind }

func (f ASN1Facet) Children() []element.Child {
	res := element.ListFacet{Elements: f.Elems}.Children()
	return append(res, children("content", f.Content)...)
}

func (f ASN1Facet) Items() []*element.Element { return f.Elems }

// Constructed reports whether the item is a SEQUENCE, SET or another
// constructed type.
func (f ASN1Facet) Constructed() bool { return f.Tag&asn1Constructed != 0 }

// ASN1 decodes DER encoded SEQUENCEs and SETs.  It is only active when the
// configuration enables it.
type ASN1 struct{}

func (ASN1) Name() string { return "asn1" }

func (ASN1) Convert(el *element.Element, ctx *convert.Context) (bool, error) {
	if !ctx.Config().ActivateASN1 {
		return false, nil
	}
	raw := el.Raw()
	if len(raw) < 2 || (raw[0] != byte(casn1.SEQUENCE) && raw[0] != byte(casn1.SET)) {
		return false, nil
	}
	var conv []*element.Element
	if err := decodeDER(el, raw, &conv); err != nil {
		return false, nil
	}
	for _, c := range conv {
		ctx.Convert(c)
	}
	return true, nil
}

// decodeDER attaches an ASN1Facet to el and its members.  Payload children
// that should be converted further are appended to conv.
func decodeDER(el *element.Element, der []byte, conv *[]*element.Element) error {
	s := cryptobyte.String(der)
	var (
		inner cryptobyte.String
		tag   casn1.Tag
	)
	if !s.ReadAnyASN1(&inner, &tag) || !s.Empty() {
		return errASN1
	}
	f := ASN1Facet{Tag: tag}
	if tag&asn1Constructed != 0 {
		for i := 0; !inner.Empty(); i++ {
			var item cryptobyte.String
			if !inner.ReadAnyASN1Element(&item, nil) {
				return errASN1
			}
			c := el.NewChild(fmt.Sprint(i), item)
			if err := decodeDER(c, item, conv); err != nil {
				return err
			}
			f.Elems = append(f.Elems, c)
		}
		el.AddFacet(f)
		return nil
	}
	switch tag {
	case casn1.OCTET_STRING:
		f.Content = el.NewChild("content", inner)
		*conv = append(*conv, f.Content)
	case casn1.BIT_STRING:
		if len(inner) == 0 || inner[0] > 7 {
			return errASN1
		}
		f.Content = el.NewChild("content", inner[1:])
		*conv = append(*conv, f.Content)
	}
	el.AddFacet(f)
	if v, ok := primitive(tag, der, inner); ok {
		el.AddFacet(element.ValueFacet{V: v})
	}
	return nil
}

func primitive(tag casn1.Tag, der, content []byte) (any, bool) {
	s := cryptobyte.String(der)
	switch tag {
	case casn1.BOOLEAN:
		var b bool
		return b, s.ReadASN1Boolean(&b)
	case casn1.INTEGER:
		var i int64
		if small := cryptobyte.String(der); small.ReadASN1Integer(&i) {
			return i, true
		}
		b := new(big.Int)
		if !s.ReadASN1Integer(b) {
			return nil, false
		}
		return b.String(), true
	case casn1.OBJECT_IDENTIFIER:
		var oid encasn1.ObjectIdentifier
		if !s.ReadASN1ObjectIdentifier(&oid) {
			return nil, false
		}
		return oid.String(), true
	case casn1.UTCTime:
		var t time.Time
		return t, s.ReadASN1UTCTime(&t)
	case casn1.GeneralizedTime:
		var t time.Time
		return t, s.ReadASN1GeneralizedTime(&t)
	case casn1.UTF8String, casn1.PrintableString, casn1.IA5String, casn1.T61String,
		asn1NumericString, asn1VisibleString:
		return string(content), true
	case casn1.NULL:
		return nil, false
	}
	return nil, false
}
