// Package wire implements the sentinel-framed JSON protocol spoken between
// the hearth daemon and its clients, along with the request and response
// shapes that cross it.
//
// A frame is a UTF-8 JSON document immediately followed by the literal bytes
// "__END__". There is no length prefix. Decoding reads until the sentinel is
// seen anywhere in the accumulated buffer, strips every occurrence, and
// parses the remainder as JSON. This matches the protocol of the original
// socket clients byte for byte, including its known weakness: message content
// containing the sentinel text is corrupted in transit.
//
// Decode distinguishes two failure modes callers handle differently:
// ErrNoRequest (peer closed without sending a frame; close silently) and
// ErrMalformed (frame present but not JSON; answer with an error object).
package wire
