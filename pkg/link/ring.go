package link

// RingCapacity is the fixed capacity of the receive ring in bytes.
// A frame must fit in the ring to be received, so the largest receivable
// payload is RingCapacity-MinFrameSize bytes; larger frames are lost to
// overflow recovery.
const RingCapacity = 512

// RingStats contains cumulative counters of a RingBuffer.
type RingStats struct {
	Pushed    uint32
	Popped    uint32
	Overflows uint32
	Peak      int
}

// RingBuffer is a fixed-capacity circular byte queue.
// The zero value is an empty buffer ready for use.
type RingBuffer struct {
	buf   [RingCapacity]byte
	head  int // next write position
	tail  int // oldest unread byte
	count int

	stats RingStats
}

// Push appends one byte. It returns false and counts an overflow if the
// buffer is full; buffered bytes are never touched in that case.
func (r *RingBuffer) Push(b byte) bool {
	if r.count >= RingCapacity {
		r.stats.Overflows++
		return false
	}
	r.buf[r.head] = b
	r.head = (r.head + 1) % RingCapacity
	r.count++
	r.stats.Pushed++
	if r.count > r.stats.Peak {
		r.stats.Peak = r.count
	}
	return true
}

// Pop removes and returns the oldest byte.
func (r *RingBuffer) Pop() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	b := r.buf[r.tail]
	r.tail = (r.tail + 1) % RingCapacity
	r.count--
	r.stats.Popped++
	return b, true
}

// Peek returns the oldest byte without removing it.
func (r *RingBuffer) Peek() (byte, bool) {
	return r.PeekAt(0)
}

// PeekAt returns the byte at offset from the oldest byte without removing it.
func (r *RingBuffer) PeekAt(offset int) (byte, bool) {
	if offset < 0 || offset >= r.count {
		return 0, false
	}
	return r.buf[(r.tail+offset)%RingCapacity], true
}

// PeekInto copies up to len(p) bytes starting at offset into p and returns
// the number of bytes copied.
func (r *RingBuffer) PeekInto(offset int, p []byte) int {
	n := 0
	for ; n < len(p); n++ {
		b, ok := r.PeekAt(offset + n)
		if !ok {
			break
		}
		p[n] = b
	}
	return n
}

// PushMultiple pushes bytes until the buffer is full and returns
// the number of bytes pushed.
func (r *RingBuffer) PushMultiple(p []byte) int {
	for n, b := range p {
		if !r.Push(b) {
			return n
		}
	}
	return len(p)
}

// PopMultiple pops up to len(p) bytes into p.
func (r *RingBuffer) PopMultiple(p []byte) int {
	for n := range p {
		b, ok := r.Pop()
		if !ok {
			return n
		}
		p[n] = b
	}
	return len(p)
}

// Discard drops up to n oldest bytes and returns how many were dropped.
func (r *RingBuffer) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	if n > r.count {
		n = r.count
	}
	r.tail = (r.tail + n) % RingCapacity
	r.count -= n
	r.stats.Popped += uint32(n)
	return n
}

// FindPattern returns the offset of the first occurrence of pattern in the
// buffered bytes, or -1. Nothing is consumed.
func (r *RingBuffer) FindPattern(pattern []byte) int {
	if len(pattern) == 0 || len(pattern) > r.count {
		return -1
	}
	for i := 0; i+len(pattern) <= r.count; i++ {
		match := true
		for j, pb := range pattern {
			if r.buf[(r.tail+i+j)%RingCapacity] != pb {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Clear empties the buffer. Statistics are kept.
func (r *RingBuffer) Clear() {
	r.head, r.tail, r.count = 0, 0, 0
}

// Len returns the number of buffered bytes.
func (r *RingBuffer) Len() int { return r.count }

// Free returns the remaining space.
func (r *RingBuffer) Free() int { return RingCapacity - r.count }

// Cap returns the capacity.
func (r *RingBuffer) Cap() int { return RingCapacity }

// IsEmpty checks if nothing is buffered.
func (r *RingBuffer) IsEmpty() bool { return r.count == 0 }

// IsFull checks if no more bytes can be pushed.
func (r *RingBuffer) IsFull() bool { return r.count >= RingCapacity }

// UsagePercent returns current usage in percent (0-100).
func (r *RingBuffer) UsagePercent() int {
	return r.count * 100 / RingCapacity
}

// Stats returns a copy of the cumulative counters.
func (r *RingBuffer) Stats() RingStats { return r.stats }

// ResetStats zeroes the cumulative counters.
func (r *RingBuffer) ResetStats() {
	r.stats = RingStats{}
}
