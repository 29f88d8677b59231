// Package netserve binds and listens on a TCP socket and wraps accept,
// giving both concurrency flavors a raw, nonblocking file descriptor to
// drive with package reqread/respwrite and, for the single-threaded
// flavor, package conntable's poll loop. Connections are kept as raw
// fds throughout, rather than net.Listener/net.Conn, since the poll
// loop needs a pollfd-equivalent array to hand to unix.Poll.
package netserve

import (
	"errors"
	"fmt"
	"net"

	"github.com/nmosier/webserv/internal/svcerr"
	"golang.org/x/sys/unix"
)

// Listener is a bound, listening, nonblocking TCP socket.
type Listener struct {
	Fd   int
	Port string
}

// Listen binds and listens on the given port (all interfaces), returning
// a nonblocking listener fd ready for Accept or conntable's poll loop.
func Listen(port string) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("netserve: socket: %w: %v", svcerr.ErrServ, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserve: setsockopt SO_REUSEADDR: %w: %v", svcerr.ErrServ, err)
	}

	portNum, err := parsePort(port)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserve: %w: %v", svcerr.ErrServ, err)
	}

	addr := unix.SockaddrInet4{Port: portNum}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserve: bind :%s: %w: %v", port, svcerr.ErrServ, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserve: listen: %w: %v", svcerr.ErrServ, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserve: set nonblocking: %w: %v", svcerr.ErrServ, err)
	}

	return &Listener{Fd: fd, Port: port}, nil
}

// Accept accepts one connection, retrying across EINTR,
// and returns the new client fd set nonblocking. Returns an error
// wrapping svcerr.ErrAgain if the listener is itself nonblocking and no
// connection is pending.
func (l *Listener) Accept() (int, error) {
	for {
		fd, _, err := unix.Accept(l.Fd)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return -1, fmt.Errorf("netserve: accept: %w", svcerr.ErrAgain)
		case err != nil:
			return -1, fmt.Errorf("netserve: accept: %w: %v", svcerr.ErrServ, err)
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("netserve: set client nonblocking: %w: %v", svcerr.ErrServ, err)
		}
		return fd, nil
	}
}

// ShutdownRead half-closes the listener's read side, so no new
// connections are accepted while in-flight connections finish normally.
func (l *Listener) ShutdownRead() error {
	if err := unix.Shutdown(l.Fd, unix.SHUT_RD); err != nil {
		return fmt.Errorf("netserve: shutdown listener: %w: %v", svcerr.ErrServ, err)
	}
	return nil
}

// Close closes the listener fd.
func (l *Listener) Close() error {
	if err := unix.Close(l.Fd); err != nil {
		return fmt.Errorf("netserve: close listener: %w: %v", svcerr.ErrServ, err)
	}
	return nil
}

func parsePort(port string) (int, error) {
	var p int
	_, err := fmt.Sscanf(port, "%d", &p)
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", port)
	}
	return p, nil
}

// RemoteAddr best-effort resolves the peer address of fd, used only for
// logging; failures are non-fatal and yield an empty string.
func RemoteAddr(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return ""
	}
	if v4, ok := sa.(*unix.SockaddrInet4); ok {
		return fmt.Sprintf("%s:%d", net.IP(v4.Addr[:]).String(), v4.Port)
	}
	return ""
}
