package message

import "github.com/nmosier/webserv/buffer"

// Response is the response-direction variant of the message sum type.
// It is filled by package respbuild (status line, headers, body) and
// then consumed by package respwrite, which serializes it into Wire
// exactly once and drains Wire across possibly many partial writes.
type Response struct {
	Line    ResponseLine
	Headers *buffer.Headers
	Body    []byte // the response entity body, set by InsertBody/InsertFile

	Wire      *buffer.Bytes // the serialized wire image; built at most once
	WireBuilt bool
	Sent      int // drain cursor into Wire; advances only, never resets
}

// NewResponse returns an empty response with no status line set yet.
func NewResponse() *Response {
	return &Response{
		Headers: buffer.NewHeaders(),
		Wire:    buffer.NewBytes(),
	}
}

// Destroy releases the response's owned buffers.
func (r *Response) Destroy() {
	r.Headers.Reset()
	r.Wire.Destroy()
	r.Body = nil
}
