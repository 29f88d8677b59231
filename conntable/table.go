// Package conntable implements the single-threaded flavor's readiness-
// driven connection table: one record of pollfd/request/response state
// per slot, with the listener always at slot 0.
package conntable

import (
	"github.com/nmosier/webserv/message"
	"golang.org/x/sys/unix"
)

// minSlots is the floor the slot table grows to from empty.
const minSlots = 16

// slot holds one connection's pollfd-equivalent and message state. A fd
// of -1 marks a tombstone, scheduled to be swept out by Pack.
type slot struct {
	fd      int
	events  int16 // requested interest: unix.POLLIN or unix.POLLOUT
	revents int16 // readiness reported by the last Poll call
	req     *message.Request
	resp    *message.Response
}

// Table is the readiness-indexed connection table. Slot 0 is always the
// listener. count includes live slots and tombstones; nopen counts only
// live (fd >= 0) slots.
type Table struct {
	slots []slot
	count int
	nopen int
}

// NewTable returns a table with the listener installed at slot 0,
// interested in readability.
func NewTable(listenerFd int) *Table {
	t := &Table{}
	t.Insert(listenerFd, unix.POLLIN)
	return t
}

// Insert appends a new slot for fd with the given interest mask, growing
// the backing array by doubling (floor minSlots) when full. Returns the
// new slot's index.
func (t *Table) Insert(fd int, events int16) int {
	t.growFor(1)
	i := t.count
	t.slots[i] = slot{
		fd:     fd,
		events: events,
		req:    message.NewRequest(),
		resp:   message.NewResponse(),
	}
	t.count++
	t.nopen++
	return i
}

func (t *Table) growFor(need int) {
	if len(t.slots)-t.count >= need {
		return
	}
	newCap := len(t.slots)
	if newCap == 0 {
		newCap = minSlots
	}
	for newCap-t.count < need {
		newCap *= 2
	}
	next := make([]slot, newCap)
	copy(next, t.slots[:t.count])
	t.slots = next
}

// Remove closes the fd at slot i, destroys its request/response, marks it
// a tombstone, and decrements nopen.
func (t *Table) Remove(i int) {
	s := &t.slots[i]
	if s.fd < 0 {
		return
	}
	unix.Close(s.fd)
	s.fd = -1
	s.req.Destroy()
	s.resp.Destroy()
	t.nopen--
}

// Pack compacts tombstones out of [0, count) using a two-pointer
// front/back sweep. The listener at index 0 is never displaced unless
// it is itself a tombstone (which cannot happen while the server is
// accepting).
func (t *Table) Pack() {
	back := t.count
	front := 0
	for front < back {
		if t.slots[front].fd >= 0 {
			front++
			continue
		}
		back--
		for back > front && t.slots[back].fd < 0 {
			back--
		}
		if back <= front {
			break
		}
		t.slots[front] = t.slots[back]
		front++
	}
	t.count = front
}

// Count returns the number of slots in [0, count), live or tombstoned.
func (t *Table) Count() int { return t.count }

// NumOpen returns the number of live (fd >= 0) slots.
func (t *Table) NumOpen() int { return t.nopen }

// Destroy removes every live slot (other than the listener at slot 0,
// which callers manage themselves) and frees the backing array.
func (t *Table) Destroy() {
	for i := 1; i < t.count; i++ {
		t.Remove(i)
	}
	t.slots = nil
	t.count = 0
}
