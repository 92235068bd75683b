// Package modify rewrites converted messages.
//
// A modification names a target path, an optional criterion that the whole
// message must satisfy, and a replacement.  Applying it replaces the
// target's content and then re-encodes every enclosing element, innermost
// first, with the first Writer that can write it: JSON documents are
// serialized again, HTTP messages get a fresh Content-Length, JWTs are
// signed again and JWEs encrypted again with keys from the key manager.
// The resulting bytes are converted into a new message.
//
// A target inside an element no Writer handles cannot be modified and
// yields ErrNoWriter.
package modify
