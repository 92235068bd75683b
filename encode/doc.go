// Package encode renders element trees as indented text.
//
// # Usage
//
//	// Render a converted message
//	encode.Encode(msg, os.Stdout, encode.EncodeFacets(true))
//
//	// Render with the display settings of a configuration, coloring output
//	// only when stdout is a terminal in auto mode
//	encode.Encode(msg, os.Stdout, encode.DisplayOptions(cfg.Display, os.Stdout)...)
//
//	// Compare two messages
//	d, err := encode.Diff(before, after)
//
// Notes attached to elements are rendered as trailing comments.  A Shader,
// such as a note.Annotator, may replace the rendered values of elements.
package encode
