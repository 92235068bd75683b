// Package rbel decodes captured network messages into annotated element
// trees.
//
// An Inspector runs each message through a conversion pipeline: mappers may
// rewrite the raw bytes, format plugins (HTTP, JSON, XML, JWT, JWE, X.509,
// CBOR, ASN.1 and more) recognize content and attach facets describing it,
// and listeners observe the finished tree.  Built-in listeners collect keys
// found in traffic so that later tokens can be verified or decrypted, and
// attach the notes of the configured note rules.
//
//	in, err := rbel.New(cfg)
//	if err != nil {
//		return err
//	}
//	msg := in.Convert(raw)
//	for _, el := range in.Find(msg, "$..[?(key == 'sub')]") {
//		fmt.Println(el.Content())
//	}
//
// Elements are addressed with paths such as "$.header.Host" or "$..body";
// criteria are boolean expressions over an element binding, see package
// eval.
package rbel
