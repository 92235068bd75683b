// Package convert turns captured messages into element trees.
//
// Each message passes three stages in order:
//
//  1. mappers registered for the raw content's shape rewrite the top-level
//     element
//  2. every plugin is offered the element; plugins attach facets, create
//     children and convert those with [Context.Convert]
//  3. listeners registered for a facet kind, or for [element.AnyKind], run
//     over the finished tree in pre-order
//
// A failing or panicking plugin, mapper or listener is logged and skipped;
// conversion always returns a tree.  The finished message is then added to
// the [History].
//
// Listeners run after the whole message is built, so a key a listener
// extracts from a message is available to plugins only from the next message
// on.
package convert
