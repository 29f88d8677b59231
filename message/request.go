package message

import "github.com/nmosier/webserv/buffer"

// Request is the request-direction half of the message model. Before
// parsing, Text accumulates raw bytes received off the wire; after a
// successful Parse, Line and Headers are populated. The parser keeps
// string copies rather than pointers into Text, so Text may be
// reallocated or freed any time after Parse returns without
// invalidating Line or Headers.
type Request struct {
	Text    *buffer.Bytes // raw accumulator filled by the reader
	Line    RequestLine
	Headers *buffer.Headers
	Body    *buffer.Bytes // unused: this server never reads a request body
	Parsed  bool
}

// NewRequest returns an empty request ready to be filled by a reader.
func NewRequest() *Request {
	return &Request{
		Text:    buffer.NewBytes(),
		Headers: buffer.NewHeaders(),
	}
}

// Destroy releases the request's owned buffers.
func (r *Request) Destroy() {
	r.Text.Destroy()
	r.Headers.Reset()
	if r.Body != nil {
		r.Body.Destroy()
	}
}
