package buffer

import (
	"errors"

	"golang.org/x/text/cases"
)

// MinHeaderSlots is the floor a header table grows to from empty.
const MinHeaderSlots = 16

// ErrEmptyKey is returned by Insert when the header key is empty.
var ErrEmptyKey = errors.New("buffer: header key must not be empty")

// Header is a single (key, value) pair of owned strings.
type Header struct {
	Key   string
	Value string
}

// Headers is a growable, insertion-ordered sequence of headers. Insertion
// order is preserved because that is wire order (the k-th inserted header
// appears k-th on the wire); a side index gives case-insensitive lookup
// without disturbing that order.
type Headers struct {
	entries []Header
	end     int
	index   map[string]int // folded key -> index into entries
}

var foldCaser = cases.Fold()

func fold(key string) string { return foldCaser.String(key) }

// NewHeaders returns an empty header table.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int)}
}

// Len returns the number of live headers.
func (h *Headers) Len() int { return h.end }

// Insert appends a (key, value) pair, growing the table by doubling (with
// a MinHeaderSlots floor) when full. Empty keys are rejected.
func (h *Headers) Insert(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	h.growFor(1)
	h.entries[h.end] = Header{Key: key, Value: value}
	h.index[fold(key)] = h.end
	h.end++
	return nil
}

func (h *Headers) growFor(need int) {
	if len(h.entries)-h.end >= need {
		return
	}
	newCap := len(h.entries)
	if newCap == 0 {
		newCap = MinHeaderSlots
	}
	for newCap-h.end < need {
		newCap *= 2
	}
	next := make([]Header, newCap)
	copy(next, h.entries[:h.end])
	h.entries = next
}

// Get returns the value of the most recently inserted header matching key
// (case-insensitively), and whether one was found.
func (h *Headers) Get(key string) (string, bool) {
	i, ok := h.index[fold(key)]
	if !ok {
		return "", false
	}
	return h.entries[i].Value, true
}

// List returns the live headers in insertion order. The returned slice
// aliases internal storage and must not be mutated by the caller.
func (h *Headers) List() []Header {
	return h.entries[:h.end]
}

// Reset empties the table without releasing its backing array.
func (h *Headers) Reset() {
	h.end = 0
	h.index = make(map[string]int)
}
