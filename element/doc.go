// Package element provides the decoded representation of captured traffic.
//
// A captured message is decoded into a tree of [Element]s.  Each element holds
// the raw bytes it was created from, which never change, and zero or more
// [Facet]s, each of which is one typed interpretation of those bytes.  Facets
// may expose child elements, so the tree grows as plugins recognize nested
// content: an HTTP body becomes JSON, a JSON string becomes a JWT, the JWT
// header becomes JSON again, and so on.
//
// # Trees
//
// Elements of one message share a [Tree].  Parent links are indices into the
// tree rather than pointers, so a child never owns its parent.  A tree is
// built by a single conversion and is read-only afterwards, except for notes.
//
// # Facets
//
// A facet is identified by its [Kind].  An element holds at most one facet of a
// given kind; adding a facet of a kind that is already present replaces the
// earlier one in place.  Facets gain capabilities by implementing optional
// interfaces:
//
//   - [Parent] exposes named children
//   - [Lister] exposes positional children
//   - [Valuer] exposes a scalar value
//   - [Summarizer] describes a protocol message for criteria
//
// # Null
//
// [Null] returns the terminal null element.  It has no facets, no children, and
// silently ignores attempts to add either.
package element
