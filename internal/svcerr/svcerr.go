// Package svcerr defines the sentinel errors shared by the protocol core.
//
// The taxonomy follows the four outcomes a message operation can have:
// success (nil error), retryable (ErrAgain), connection-terminal
// (ErrConn), and internal/fatal-to-the-connection (ErrServ). Parser
// syntax failures get their own sentinel, ErrMalformed, since a
// malformed request is neither a retry nor a connection failure.
package svcerr

import "errors"

var (
	// ErrAgain means the operation would block; the caller should retry
	// once the descriptor becomes ready again. Never fatal.
	ErrAgain = errors.New("svcerr: again")

	// ErrConn means the peer connection is gone (reset, aborted, or a
	// broken pipe on send). The caller should close and forget
	// the connection; the server keeps running.
	ErrConn = errors.New("svcerr: connection terminated")

	// ErrServ means an internal failure (allocation, unexpected syscall
	// result, parser invariant violation) occurred. Fatal to the
	// connection; callers decide whether it is fatal to the process.
	ErrServ = errors.New("svcerr: internal error")

	// ErrMalformed means the request failed to parse as well-formed
	// HTTP/1.1. The connection is closed without a response.
	ErrMalformed = errors.New("svcerr: malformed request")
)

// Classify returns the taxonomy sentinel that err is (or wraps): nil for
// a nil err, ErrAgain, ErrConn or ErrMalformed when err wraps one of
// those, and ErrServ for every other error.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAgain):
		return ErrAgain
	case errors.Is(err, ErrConn):
		return ErrConn
	case errors.Is(err, ErrMalformed):
		return ErrMalformed
	default:
		return ErrServ
	}
}
