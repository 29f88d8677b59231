package netserve

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nmosier/webserv/internal/svcerr"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListenAcceptShutdownClose(t *testing.T) {
	l2, err := Listen("18181")
	require.NoError(t, err)
	defer l2.Close()

	dialDone := make(chan error, 1)
	go func() {
		conn, err := net.DialTimeout("tcp", "127.0.0.1:18181", 2*time.Second)
		if err == nil {
			conn.Close()
		}
		dialDone <- err
	}()

	var fd int
	var acceptErr error
	for i := 0; i < 1000; i++ {
		fd, acceptErr = l2.Accept()
		if acceptErr == nil {
			break
		}
		if errors.Is(acceptErr, svcerr.ErrAgain) {
			time.Sleep(time.Millisecond)
			continue
		}
		t.Fatalf("unexpected accept error: %v", acceptErr)
	}
	require.NoError(t, acceptErr)
	require.Greater(t, fd, 0)
	unix.Close(fd)

	require.NoError(t, <-dialDone)
	require.NoError(t, l2.ShutdownRead())
}
