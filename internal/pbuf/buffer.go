// Package pbuf implements the shared packet buffer that every packet view
// in internal/packet parses and serializes over.
//
// A Buffer is a contiguously allocated byte region sized to the next power
// of two at or above whatever has been requested so far (a Buffer made by
// FromBytes starts out as the caller's own slice instead). Unlike a plain
// []byte, a Buffer tracks its "logical start" as an offset counted from the
// END of the underlying array (reverse). The effective payload is always
// data[len(data)-reverse:]. That inversion is what lets Prepend grow the
// backing array without invalidating offsets that views upstream already
// hold: when the array grows, the old bytes are copied to the new array's
// tail, so a reverse offset recorded before the growth still points at the
// same logical bytes afterward.
package pbuf

// minAlloc is the smallest backing array pbuf ever allocates, chosen to
// cover a full Ethernet frame (14 + 1500) without a second grow on the
// common path.
const minAlloc = 2048

// Buffer is a single shared packet region. Exactly one writer is expected
// to mutate it at a time; any number of packet.View values may hold a
// pointer to it and read/write the bytes at their own offsets concurrently
// with that invariant upheld by the caller (views are created and consumed
// within a single packet-handling goroutine's frame).
type Buffer struct {
	data    []byte
	reverse int // logical start, counted from the end of data
}

// New allocates a Buffer whose effective length is exactly n bytes, with
// headroom already reserved for header prepending up to the backing
// array's capacity.
func New(n int) *Buffer {
	size := nextPow2(n)
	if size < minAlloc {
		size = minAlloc
	}
	return &Buffer{
		data:    make([]byte, size),
		reverse: n,
	}
}

// FromBytes wraps an existing frame (e.g. one just read off an interface)
// in a Buffer with no spare headroom; the first Prepend call will grow it.
// The Buffer aliases b: its backing array is b itself, so writes through
// the Buffer (or views over it) change b until a Prepend reallocates.
func FromBytes(b []byte) *Buffer {
	return &Buffer{data: b, reverse: len(b)}
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the effective (logical) length of the buffer.
func (b *Buffer) Len() int {
	return b.reverse
}

// Cap returns the size of the backing array.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Data returns the logical payload: the last b.reverse bytes of the backing
// array. Callers may read and write through the returned slice; it aliases
// the Buffer's storage.
func (b *Buffer) Data() []byte {
	return b.data[len(b.data)-b.reverse:]
}

// Prepend grows the logical region by n bytes at its front and returns
// those n fresh bytes (the first n bytes of Data()). If the
// backing array has no more headroom, it is reallocated to the next power
// of two and the old payload is copied to the tail of the new array, which
// preserves every outstanding reverse-offset-based view.
func (b *Buffer) Prepend(n int) []byte {
	needed := b.reverse + n
	if needed > len(b.data) {
		newSize := nextPow2(needed)
		newData := make([]byte, newSize)
		copy(newData[newSize-b.reverse:], b.Data())
		b.data = newData
	}
	b.reverse = needed
	return b.Data()[:n]
}

// Truncate shortens the logical region to n bytes, keeping the trailing
// n bytes of the current payload (i.e. it trims from the front, the
// inverse of Prepend). It is used when a view needs to hand its payload
// onward without the headers it has already consumed.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.reverse {
		panic("pbuf: Truncate out of range")
	}
	b.reverse = n
}

// Clone makes an independent deep copy of the buffer, for a caller that
// keeps a packet while the original frame's storage may be reused.
func (b *Buffer) Clone() *Buffer {
	clone := New(b.Len())
	copy(clone.Data(), b.Data())
	return clone
}
