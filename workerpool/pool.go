// Package workerpool implements the thread-per-connection flavor of the
// server: one goroutine per accepted connection, each busy-retrying the
// same nonblocking read/write primitives the single-threaded flavor
// uses.
package workerpool

import (
	"errors"
	"sync"
	"time"

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

// busyRetryDelay is slept between EAGAIN retries so a stalled peer
// doesn't spin a worker goroutine at 100% CPU.
const busyRetryDelay = time.Millisecond

// Config bundles the per-run parameters each worker needs to build
// responses and log with correlation, mirroring conntable.Config.
type Config struct {
	Docroot  string
	ServName string
	Types    *mimetype.Table
	Log      *zap.Logger
}

// Pool is the thread-per-connection flavor's accept loop and worker
// registry. It owns one goroutine per live connection plus the accept
// loop goroutine itself.
type Pool struct {
	listener *netserve.Listener
	cfg      Config

	mu       sync.Mutex
	conns    map[int]struct{}
	firstErr error
	wg       sync.WaitGroup
}

// New returns a pool ready to Run against listener.
func New(listener *netserve.Listener, cfg Config) *Pool {
	return &Pool{
		listener: listener,
		cfg:      cfg,
		conns:    make(map[int]struct{}),
	}
}

// Run accepts connections until accepting reports false, then stops
// accepting new ones, waits for in-flight workers to finish, and
// returns once every worker has exited. It returns the first internal
// error recorded by any worker, or nil if every connection that failed
// did so for a benign, connection-local reason.
func (p *Pool) Run(accepting *lifecycle.Accepting) error {
	for accepting.IsAccepting() {
		fd, err := p.listener.Accept()
		if err != nil {
			if errors.Is(err, svcerr.ErrAgain) {
				time.Sleep(busyRetryDelay)
				continue
			}
			p.cfg.Log.Error("accept failed", zap.Error(err))
			continue
		}

		cid := uuid.NewString()
		p.track(fd)
		p.wg.Add(1)
		go p.serve(fd, cid)
	}

	if err := p.listener.ShutdownRead(); err != nil {
		p.cfg.Log.Warn("shutdown listener read side failed", zap.Error(err))
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// recordErr saves err as the pool's first internal-class error if one
// hasn't already been recorded. Per-connection outcomes (EAGAIN,
// malformed requests, a reset or broken peer) are not internal errors
// and are never recorded here; only svcerr.ErrServ-class failures are,
// so that an internal failure surfaces through Run's return value while
// a single bad connection does not.
func (p *Pool) recordErr(err error) {
	if !errors.Is(err, svcerr.ErrServ) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
}

func (p *Pool) track(fd int) {
	p.mu.Lock()
	p.conns[fd] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) untrack(fd int) {
	p.mu.Lock()
	delete(p.conns, fd)
	p.mu.Unlock()
}

// NumActive returns the number of connections currently being served,
// used by tests and diagnostics.
func (p *Pool) NumActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// serve drives one connection end to end: read the request (busy-retry
// on EAGAIN), parse it, handle it, and write the response (same retry
// discipline), then close the fd and leave the registry.
func (p *Pool) serve(fd int, cid string) {
	defer p.wg.Done()
	defer p.untrack(fd)
	defer unix.Close(fd)

	log := p.cfg.Log.With(zap.String("conn_id", cid), zap.Int("fd", fd))

	req := message.NewRequest()
	defer req.Destroy()

	if err := p.readRequest(fd, req, log); err != nil {
		p.recordErr(err)
		return
	}

	if err := message.Parse(req); err != nil {
		if errors.Is(err, svcerr.ErrMalformed) {
			log.Debug("malformed request", zap.Error(err))
		} else {
			log.Error("parser internal error", zap.Error(err))
			p.recordErr(err)
		}
		return
	}

	resp, err := handler.ServeGET(p.cfg.Docroot, p.cfg.ServName, req, p.cfg.Types)
	if err != nil {
		log.Error("handler failed", zap.Error(err))
		p.recordErr(err)
		return
	}
	defer resp.Destroy()

	p.writeResponse(fd, resp, log)
}

func (p *Pool) readRequest(fd int, req *message.Request, log *zap.Logger) error {
	for {
		err := reqread.Read(fd, req)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, svcerr.ErrAgain):
			time.Sleep(busyRetryDelay)
		default:
			log.Debug("request read failed", zap.Error(err))
			return err
		}
	}
}

func (p *Pool) writeResponse(fd int, resp *message.Response, log *zap.Logger) {
	for {
		err := respwrite.Write(fd, resp)
		switch {
		case err == nil:
			return
		case errors.Is(err, svcerr.ErrAgain):
			time.Sleep(busyRetryDelay)
		default:
			log.Debug("response write failed", zap.Error(err))
			p.recordErr(err)
			return
		}
	}
}
