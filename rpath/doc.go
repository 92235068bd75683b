// Package rpath evaluates path expressions over element trees.
//
// A path starts at the root "$" and applies segments left to right:
//
//	$.header.Host         named children
//	$.body['content-type'] quoted names
//	$.body.items[0]       positional children of list facets
//	$.body.*  $.body[*]   all children
//	$..alg                ".." selects the current elements and all their
//	                      descendants before the next segment applies
//	$..*                  every element below the root
//	$..[?(key == 'kid')]  children matching a criterion (see WithFilter)
//
// Results are ordered as found in a pre-order walk and never contain the same
// element twice.  A path that matches nothing yields an empty result.
package rpath
