// Package buffer implements the growable byte buffer and header table that
// sit underneath every request and response message. Both grow by doubling
// capacity with a floor, and both are addressed by integer offset rather
// than raw pointer so that a realloc never leaves a dangling reference.
package buffer

// MinGrow is the smallest number of bytes a text buffer grows to from empty.
const MinGrow = 4096

// Bytes is a growable byte buffer with a cursor dividing the filled prefix
// from spare capacity. It never shrinks; ResetCursor reuses the backing
// array for a new fill without releasing it.
type Bytes struct {
	data   []byte
	cursor int
}

// NewBytes returns an empty buffer with no backing storage allocated yet.
func NewBytes() *Bytes {
	return &Bytes{}
}

// Len returns the number of filled bytes.
func (b *Bytes) Len() int { return b.cursor }

// Cap returns the total allocated capacity.
func (b *Bytes) Cap() int { return len(b.data) }

// Free returns the number of unfilled bytes remaining in the backing array.
func (b *Bytes) Free() int { return len(b.data) - b.cursor }

// Filled returns the filled prefix of the buffer. The returned slice
// aliases the buffer's backing array and is invalidated by the next
// Grow/GrowFor/Append call that reallocates.
func (b *Bytes) Filled() []byte { return b.data[:b.cursor] }

// GrowTo reallocates the backing array to at least n bytes, preserving the
// filled prefix and cursor offset. A no-op if capacity is already >= n.
func (b *Bytes) GrowTo(n int) {
	if n <= len(b.data) {
		return
	}
	next := make([]byte, n)
	copy(next, b.data[:b.cursor])
	b.data = next
}

// GrowFor ensures at least `need` free bytes are available, doubling
// capacity (with a MinGrow floor) until satisfied.
func (b *Bytes) GrowFor(need int) {
	if b.Free() >= need {
		return
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = MinGrow
	}
	for newCap-b.cursor < need {
		newCap *= 2
	}
	b.GrowTo(newCap)
}

// Append grows as needed, copies p into the buffer, and advances the
// cursor. It returns the starting offset p was written at, so that
// callers can hold an integer offset instead of a pointer into the
// buffer across future growth.
func (b *Bytes) Append(p []byte) int {
	b.GrowFor(len(p))
	start := b.cursor
	copy(b.data[b.cursor:], p)
	b.cursor += len(p)
	return start
}

// Slice returns the filled sub-range [start:end), resolved against the
// current backing array. Callers should always re-resolve offsets through
// Slice rather than caching the returned slice across a Grow/Append call.
func (b *Bytes) Slice(start, end int) []byte {
	return b.data[start:end]
}

// FreeSlice returns the unfilled suffix of the backing array, for callers
// (the nonblocking reader) that write into the buffer via a raw syscall
// rather than through Append. Call GrowFor first to guarantee the slice
// is non-empty; advance the cursor afterward with Advance.
func (b *Bytes) FreeSlice() []byte {
	return b.data[b.cursor:]
}

// Advance moves the cursor forward by n, after the caller has written n
// bytes into the slice returned by FreeSlice. It never re-reads bytes:
// each call only accounts for bytes the caller asserts were just written.
func (b *Bytes) Advance(n int) {
	b.cursor += n
}

// ResetCursor rewinds the cursor to zero without releasing the backing
// array, allowing the buffer to be reused for a new fill.
func (b *Bytes) ResetCursor() { b.cursor = 0 }

// Destroy releases the backing array.
func (b *Bytes) Destroy() { b.data = nil; b.cursor = 0 }
