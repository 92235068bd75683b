// Package keys manages the keys used to verify and decrypt decoded content.
//
// Keys are deduplicated by their encoded material, regardless of name, and
// are handed out ordered by precedence.  Decoders try keys in that order, so
// keys found in the traffic itself (x5c headers, JWKs) are tried before
// configured ones.
package keys
