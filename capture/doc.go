// Package capture provides message sources for a converter.
//
// A capture file is a stream of YAML documents separated by "---", each a
// record:
//
//	sender: client.example:51234
//	receiver: api.example:443
//	data: |
//	  GET /status HTTP/1.1
//	  Host: api.example
//
// Binary messages are stored base64 encoded with base64: true.
package capture
