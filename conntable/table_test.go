package conntable

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openPipeFd returns a readable fd that Remove can legally close.
func openPipeFd(t *testing.T) int {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) })
	return fds[0]
}

func TestNewTableInstallsListenerAtSlotZero(t *testing.T) {
	listenerFd := openPipeFd(t)
	defer unix.Close(listenerFd)

	tbl := NewTable(listenerFd)
	require.Equal(t, 1, tbl.Count())
	require.Equal(t, 1, tbl.NumOpen())
	require.Equal(t, listenerFd, tbl.slots[0].fd)
	require.Equal(t, int16(unix.POLLIN), tbl.slots[0].events)
}

func TestInsertGrowsAndTracksNumOpen(t *testing.T) {
	listenerFd := openPipeFd(t)
	defer unix.Close(listenerFd)
	tbl := NewTable(listenerFd)

	for i := 0; i < 20; i++ {
		fd := openPipeFd(t)
		idx := tbl.Insert(fd, unix.POLLIN)
		require.Equal(t, i+1, idx)
	}
	require.Equal(t, 21, tbl.Count())
	require.Equal(t, 21, tbl.NumOpen())
}

func TestPackRemovesTombstonesAndKeepsListenerAtZero(t *testing.T) {
	listenerFd := openPipeFd(t)
	defer unix.Close(listenerFd)
	tbl := NewTable(listenerFd)

	for i := 0; i < 4; i++ {
		tbl.Insert(openPipeFd(t), unix.POLLIN)
	}
	require.Equal(t, 5, tbl.Count())

	// Tombstone slots 1 and 3.
	tbl.Remove(1)
	tbl.Remove(3)
	require.Equal(t, 3, tbl.NumOpen())

	tbl.Pack()

	require.Equal(t, 3, tbl.Count())
	for i := 0; i < tbl.Count(); i++ {
		require.GreaterOrEqual(t, tbl.slots[i].fd, 0, "slot %d is a tombstone after Pack", i)
	}
	require.Equal(t, listenerFd, tbl.slots[0].fd)
	require.Equal(t, tbl.NumOpen(), tbl.Count())
}

func TestPackAllTombstonesExceptListenerLeavesCountOne(t *testing.T) {
	listenerFd := openPipeFd(t)
	defer unix.Close(listenerFd)
	tbl := NewTable(listenerFd)

	for i := 0; i < 3; i++ {
		tbl.Insert(openPipeFd(t), unix.POLLIN)
	}
	tbl.Remove(1)
	tbl.Remove(2)
	tbl.Remove(3)

	tbl.Pack()

	require.Equal(t, 1, tbl.Count())
	require.Equal(t, 1, tbl.NumOpen())
	require.Equal(t, listenerFd, tbl.slots[0].fd)
}

func TestPackNoTombstonesIsNoop(t *testing.T) {
	listenerFd := openPipeFd(t)
	defer unix.Close(listenerFd)
	tbl := NewTable(listenerFd)
	for i := 0; i < 3; i++ {
		tbl.Insert(openPipeFd(t), unix.POLLIN)
	}

	before := tbl.Count()
	tbl.Pack()
	require.Equal(t, before, tbl.Count())
}

func TestDestroyClosesClientSlotsButLeavesListener(t *testing.T) {
	listenerFd := openPipeFd(t)
	defer unix.Close(listenerFd)
	tbl := NewTable(listenerFd)
	var clients []int
	for i := 0; i < 3; i++ {
		fd := openPipeFd(t)
		clients = append(clients, fd)
		tbl.Insert(fd, unix.POLLIN)
	}

	tbl.Destroy()
	require.Equal(t, 0, tbl.Count())

	_, err := unix.FcntlInt(uintptr(listenerFd), unix.F_GETFD, 0)
	require.NoError(t, err, "listener fd must stay open after Destroy")
	for _, fd := range clients {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
		require.ErrorIs(t, err, unix.EBADF, "client fd %d still open after Destroy", fd)
	}
}
