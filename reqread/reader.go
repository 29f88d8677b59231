// Package reqread implements the nonblocking, restartable request reader:
// a single call receives whatever bytes are currently available on fd,
// appends them to the request's text buffer, and reports whether the
// "\r\n\r\n" terminator has been seen yet.
package reqread

import (
	"errors"
	"fmt"

	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/nmosier/webserv/message"
	"golang.org/x/sys/unix"
)

const terminator = "\r\n\r\n"

// Read receives once from fd into req.Text, growing the buffer if it is
// full, and reports one of three outcomes:
//
//   - nil: the terminator has been seen; the request is ready to parse.
//   - an error wrapping svcerr.ErrAgain: no terminator yet, retry on the
//     next readiness event.
//   - any other error (svcerr.ErrConn / svcerr.ErrServ / svcerr.ErrMalformed):
//     the connection must be torn down.
//
// It never re-reads bytes already accounted for, and advances the cursor
// by exactly the number of bytes the syscall reported.
func Read(fd int, req *message.Request) error {
	if req.Text.Free() == 0 {
		req.Text.GrowFor(1)
	}

	n, err := unix.Read(fd, req.Text.FreeSlice())
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return fmt.Errorf("reqread: %w", svcerr.ErrAgain)
	case errors.Is(err, unix.ECONNRESET), errors.Is(err, unix.ECONNABORTED):
		return fmt.Errorf("reqread: recv: %w: %v", svcerr.ErrConn, err)
	case err != nil:
		return fmt.Errorf("reqread: recv: %w: %v", svcerr.ErrServ, err)
	}

	if n == 0 {
		// Zero bytes with no terminator seen: end-of-stream before a
		// complete request arrived; treated as malformed.
		return fmt.Errorf("reqread: peer closed before request terminator: %w", svcerr.ErrMalformed)
	}

	req.Text.Advance(n)

	if hasTerminator(req) {
		return nil
	}
	return fmt.Errorf("reqread: %w", svcerr.ErrAgain)
}

// hasTerminator reports whether the last four bytes of the filled region
// equal "\r\n\r\n". It is checked on every call regardless of how many
// bytes were just appended, so a terminator split across two reads (e.g.
// one read ending "...\r" followed by a read of just "\n") is still
// detected once the cursor reaches at least four bytes.
func hasTerminator(req *message.Request) bool {
	filled := req.Text.Filled()
	if len(filled) < len(terminator) {
		return false
	}
	tail := filled[len(filled)-len(terminator):]
	return string(tail) == terminator
}
