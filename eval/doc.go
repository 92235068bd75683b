// Package eval evaluates criteria against elements.
//
// A criterion is an expr-lang expression that must yield a boolean.  It sees
// only the [Binding] built for the element under test:
//
//	key         the element's name in its parent
//	path        the dot-joined names from the message root
//	content     the decoded string value, or the raw content
//	value       the decoded scalar value, if any
//	kind        the kind of the element's first facet
//	facets      the kinds of all facets
//	note        the note attached so far
//	parent      the parent's name
//	isRequest   whether the message is a request
//	isResponse  whether the message is a response
//	message     method, url, path, statusCode of the message
//	request     the same for the request a response answers
//
// and the helpers get(path), has(path), count(path) and hasFacet(kind).  A
// path starting with "$" is resolved against the element's message, one
// starting with "@" against the element itself:
//
//	key == 'alg' && parent == 'header'
//	isRequest && message.method == 'POST' && has("$.body.code")
//	content matches '^eyJ'
//
// Criteria that fail to compile or to run evaluate to false.
package eval
