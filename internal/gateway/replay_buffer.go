package gateway

import (
	"sync"

	"chronoutil/internal/ringbuf"
)

// ReplayBuffer is a fixed-size circular buffer of recently broadcast
// samples. Reconnecting clients use it to catch up on missed sequence
// numbers.
//
// Thread-safe for concurrent writes and reads.
type ReplayBuffer struct {
	mu   sync.RWMutex
	buf  []ringbuf.Sample
	cap  int
	pos  int // next write position
	full bool
}

// NewReplayBuffer creates a replay buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{
		buf: make([]ringbuf.Sample, capacity),
		cap: capacity,
	}
}

// Push appends a sample. Overwrites the oldest entry when full.
func (rb *ReplayBuffer) Push(s ringbuf.Sample) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.pos] = s
	rb.pos = (rb.pos + 1) % rb.cap
	if rb.pos == 0 && !rb.full {
		rb.full = true
	}
}

// Range returns all samples with seq in [fromSeq, toSeq] (inclusive),
// oldest first.
func (rb *ReplayBuffer) Range(fromSeq, toSeq uint64) []ringbuf.Sample {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []ringbuf.Sample
	count := rb.len()

	for i := 0; i < count; i++ {
		s := rb.buf[rb.index(i)]
		if s.Seq >= fromSeq && s.Seq <= toSeq {
			result = append(result, s)
		}
	}
	return result
}

// After returns the samples newer than seq, oldest first.
func (rb *ReplayBuffer) After(seq uint64) []ringbuf.Sample {
	return rb.Range(seq+1, ^uint64(0))
}

// LastSeq returns the sequence number of the newest sample, or 0.
func (rb *ReplayBuffer) LastSeq() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	n := rb.len()
	if n == 0 {
		return 0
	}
	return rb.buf[rb.index(n-1)].Seq
}

// Len returns the number of entries currently in the buffer.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.len()
}

func (rb *ReplayBuffer) len() int {
	if rb.full {
		return rb.cap
	}
	return rb.pos
}

// index converts a logical index (0 = oldest) to a physical buffer index.
func (rb *ReplayBuffer) index(logical int) int {
	if rb.full {
		return (rb.pos + logical) % rb.cap
	}
	return logical
}
