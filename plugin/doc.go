// Package plugin provides the built-in format decoders.
//
// Each decoder is a convert.Plugin that recognizes one format in the raw
// bytes of an element, attaches a facet describing it and converts the
// children it creates.  Decoders never fail a conversion: unrecognized
// content is left alone and malformed content is reported to the converter,
// which logs it.
//
// Besides decoders the package has listeners which feed keys found in
// traffic (x5c headers, JSON web keys, token_key members) into the key
// manager, and mappers which rewrite messages before they are decoded.
package plugin
