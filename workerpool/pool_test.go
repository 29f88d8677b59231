package workerpool

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/nmosier/webserv/lifecycle"
	"github.com/nmosier/webserv/mimetype"
	"github.com/nmosier/webserv/netserve"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolServesOneRequestEndToEnd(t *testing.T) {
	docroot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docroot, "index.txt"), []byte("hello worker"), 0o644))

	types, err := mimetype.Parse(strings.NewReader("text/plain txt\n"))
	require.NoError(t, err)

	l, err := netserve.Listen("18182")
	require.NoError(t, err)

	accepting := lifecycle.NewAccepting()
	pool := New(l, Config{
		Docroot:  docroot,
		ServName: "testserv",
		Types:    types,
		Log:      zap.NewNop(),
	})

	runDone := make(chan error, 1)
	go func() { runDone <- pool.Run(accepting) }()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:18182", 2*time.Second)
	require.NoError(t, err)
	_, err = conn.Write([]byte("GET /index.txt HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "200")
	conn.Close()

	accepting.StopAccepting()
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pool.Run did not return after StopAccepting")
	}
	require.NoError(t, l.Close())
}

func TestRecordErrKeepsFirstServErrOnly(t *testing.T) {
	p := &Pool{conns: make(map[int]struct{})}

	p.recordErr(fmt.Errorf("read: %w", svcerr.ErrConn))
	require.NoError(t, p.firstErr)

	first := fmt.Errorf("read: %w", svcerr.ErrServ)
	p.recordErr(first)
	require.ErrorIs(t, p.firstErr, svcerr.ErrServ)
	require.Equal(t, first, p.firstErr)

	p.recordErr(fmt.Errorf("write: %w", svcerr.ErrServ))
	require.Equal(t, first, p.firstErr, "recordErr must keep the first error, not the latest")
}

func TestPoolRunReturnsFirstWorkerServErr(t *testing.T) {
	p := &Pool{conns: make(map[int]struct{})}
	want := fmt.Errorf("handler: %w", svcerr.ErrServ)
	p.recordErr(want)

	accepting := lifecycle.NewAccepting()
	accepting.StopAccepting()

	l, err := netserve.Listen("18183")
	require.NoError(t, err)
	defer l.Close()
	p.listener = l
	p.cfg.Log = zap.NewNop()

	err = p.Run(accepting)
	require.True(t, errors.Is(err, svcerr.ErrServ))
	require.Equal(t, want, err)
}
