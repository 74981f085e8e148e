// Package ringbuf provides a lock-free, single-producer single-consumer (SPSC)
// ring of clock samples. The clock ticker pushes, the broadcaster pops; a
// full ring drops the newest sample and counts the overflow.
package ringbuf

import (
	"sync/atomic"

	"chronoutil/pkg/chrono"
)

// cacheLine is the typical x86-64 cache line size used for padding.
const cacheLine = 64

// Sample is one clock reading.
type Sample struct {
	Seq uint64
	At  chrono.DateTime
}

// Ring is a lock-free SPSC ring buffer of Samples.
// Size must be a power of two for fast bitwise modulo.
type Ring struct {
	buf  []Sample
	mask uint64

	// Separate cache lines to prevent false sharing between producer and consumer.
	_pad0 [cacheLine]byte
	head  atomic.Uint64 // written by producer
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // written by consumer
	_pad2 [cacheLine]byte

	overflow atomic.Uint64
}

// New creates a ring buffer. capacity is rounded up to the next power of two,
// with a minimum of 2.
func New(capacity int) *Ring {
	size := nextPow2(capacity)
	if size < 2 {
		size = 2
	}
	return &Ring{
		buf:  make([]Sample, size),
		mask: uint64(size - 1),
	}
}

// Push appends s. It returns false without writing when the ring is full.
// Producer side only.
func (r *Ring) Push(s Sample) bool {
	head := r.head.Load()
	tail := r.tail.Load()

	if head-tail >= uint64(len(r.buf)) {
		r.overflow.Add(1)
		return false
	}

	r.buf[head&r.mask] = s
	r.head.Store(head + 1)
	return true
}

// Pop removes the oldest sample. Consumer side only.
func (r *Ring) Pop() (Sample, bool) {
	tail := r.tail.Load()
	head := r.head.Load()

	if tail >= head {
		return Sample{}, false
	}

	s := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return s, true
}

// Drain pops every available sample into fn and returns how many it saw.
// Consumer side only.
func (r *Ring) Drain(fn func(Sample)) int {
	n := 0
	for {
		s, ok := r.Pop()
		if !ok {
			return n
		}
		fn(s)
		n++
	}
}

// Len returns the current number of items in the buffer.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Overflow returns the total number of dropped pushes due to full buffer.
func (r *Ring) Overflow() uint64 {
	return r.overflow.Load()
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
