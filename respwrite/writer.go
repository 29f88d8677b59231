// Package respwrite serializes a built message.Response into a contiguous
// wire buffer exactly once, then drains it across possibly many
// nonblocking, restartable send calls.
package respwrite

import (
	"errors"
	"fmt"

	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/nmosier/webserv/message"
	"golang.org/x/sys/unix"
)

// Write builds resp.Wire on its first call for this response and then
// attempts one send of the remaining unsent bytes. It returns:
//
//   - nil: every byte has been sent.
//   - an error wrapping svcerr.ErrAgain: the send would block; the
//     caller should retry once fd is writable again. resp.Sent already
//     reflects whatever partial progress this call made.
//   - svcerr.ErrConn / svcerr.ErrServ: the connection must be torn down.
func Write(fd int, resp *message.Response) error {
	if !resp.WireBuilt {
		build(resp)
		resp.WireBuilt = true
	}

	wire := resp.Wire.Filled()
	if resp.Sent >= len(wire) {
		return nil
	}

	n, err := unix.Write(fd, wire[resp.Sent:])
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return fmt.Errorf("respwrite: %w", svcerr.ErrAgain)
	case errors.Is(err, unix.EPIPE), errors.Is(err, unix.ECONNRESET):
		// A broken-pipe signal during send must not kill the process; the
		// caller (the event loop or worker) just removes this connection.
		return fmt.Errorf("respwrite: send: %w: %v", svcerr.ErrConn, err)
	case err != nil:
		return fmt.Errorf("respwrite: send: %w: %v", svcerr.ErrServ, err)
	}

	resp.Sent += n
	if resp.Sent >= len(wire) {
		return nil
	}
	return fmt.Errorf("respwrite: %w", svcerr.ErrAgain)
}

// build serializes the status line, headers, and body into resp.Wire.
// buffer.Bytes grows to fit via Append, so the wire image is sized
// correctly in a single pass with no resize-and-retry needed.
func build(resp *message.Response) {
	statusLine := fmt.Sprintf("HTTP/%s %d %s\r\n", resp.Line.Version, resp.Line.Status.Code, resp.Line.Status.Reason)
	resp.Wire.Append([]byte(statusLine))

	for _, h := range resp.Headers.List() {
		resp.Wire.Append([]byte(fmt.Sprintf("%s: %s\r\n", h.Key, h.Value)))
	}
	resp.Wire.Append([]byte("\r\n"))

	if len(resp.Body) > 0 {
		resp.Wire.Append(resp.Body)
	}
}
