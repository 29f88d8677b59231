package conntable

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nmosier/webserv/handler"
	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/nmosier/webserv/lifecycle"
	"github.com/nmosier/webserv/message"
	"github.com/nmosier/webserv/mimetype"
	"github.com/nmosier/webserv/netserve"
	"github.com/nmosier/webserv/reqread"
	"github.com/nmosier/webserv/respwrite"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Config bundles the per-run parameters the event loop needs to build
// responses and log with correlation.
type Config struct {
	Docroot  string
	ServName string
	Types    *mimetype.Table
	Log      *zap.Logger
}

// Run drives the single-threaded event loop until accepting is false
// and every client slot has drained. The
// listener itself is never closed by Run; callers close it afterward.
func Run(listener *netserve.Listener, accepting *lifecycle.Accepting, cfg Config) error {
	t := NewTable(listener.Fd)
	listenerShutdown := false

	for accepting.IsAccepting() || t.NumOpen() > 1 {
		if !accepting.IsAccepting() && !listenerShutdown {
			if err := listener.ShutdownRead(); err != nil {
				cfg.Log.Warn("shutdown listener read side failed", zap.Error(err))
			}
			listenerShutdown = true
		}

		pfds := make([]unix.PollFd, t.count)
		for i := 0; i < t.count; i++ {
			pfds[i] = unix.PollFd{Fd: int32(t.slots[i].fd), Events: t.slots[i].events}
		}

		_, err := unix.Poll(pfds, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("conntable: poll: %w: %v", svcerr.ErrServ, err)
		}
		for i, pfd := range pfds {
			t.slots[i].revents = pfd.Revents
		}

		for i := 0; i < t.count; i++ {
			s := &t.slots[i]
			if s.revents == 0 {
				continue
			}
			if i == 0 {
				handleListenerEvent(t, s, listener, cfg)
				continue
			}
			handleClientEvent(t, i, s, cfg)
		}

		t.Pack()
	}

	t.Destroy()
	return nil
}

func handleListenerEvent(t *Table, s *slot, listener *netserve.Listener, cfg Config) {
	if s.revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		cfg.Log.Error("listener fd error")
		return
	}
	if s.revents&unix.POLLIN == 0 {
		return
	}
	fd, err := listener.Accept()
	if err != nil {
		if !errors.Is(err, svcerr.ErrAgain) {
			cfg.Log.Error("accept failed", zap.Error(err))
		}
		return
	}
	cid := uuid.NewString()
	cfg.Log.Debug("accepted connection", zap.String("conn_id", cid), zap.Int("fd", fd))
	t.Insert(fd, unix.POLLIN)
}

func handleClientEvent(t *Table, i int, s *slot, cfg Config) {
	if s.revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		t.Remove(i)
		return
	}

	if s.revents&unix.POLLIN != 0 {
		err := reqread.Read(s.fd, s.req)
		switch {
		case err == nil:
			serveRequest(t, i, s, cfg)
		case errors.Is(err, svcerr.ErrAgain):
			// leave the slot in place; more bytes expected later.
		default:
			cfg.Log.Debug("request read failed", zap.Int("fd", s.fd), zap.Error(err))
			t.Remove(i)
		}
		return
	}

	if s.revents&unix.POLLOUT != 0 {
		err := respwrite.Write(s.fd, s.resp)
		switch {
		case err == nil:
			t.Remove(i)
		case errors.Is(err, svcerr.ErrAgain):
			// leave the slot in place; retry once writable again.
		default:
			cfg.Log.Debug("response write failed", zap.Int("fd", s.fd), zap.Error(err))
			t.Remove(i)
		}
	}
}

func serveRequest(t *Table, i int, s *slot, cfg Config) {
	if err := message.Parse(s.req); err != nil {
		if errors.Is(err, svcerr.ErrMalformed) {
			cfg.Log.Debug("malformed request", zap.Int("fd", s.fd), zap.Error(err))
		} else {
			cfg.Log.Error("parser internal error", zap.Int("fd", s.fd), zap.Error(err))
		}
		t.Remove(i)
		return
	}

	resp, err := handler.ServeGET(cfg.Docroot, cfg.ServName, s.req, cfg.Types)
	if err != nil {
		cfg.Log.Error("handler failed", zap.Int("fd", s.fd), zap.Error(err))
		t.Remove(i)
		return
	}
	s.resp = resp
	s.events = unix.POLLOUT
}
