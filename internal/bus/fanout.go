// Package bus fans clock events out to independent sinks so that a slow
// sink (Redis, the journal) never stalls the broadcaster.
package bus

import (
	"context"
	"log"
	"sync"

	"chronoutil/internal/ringbuf"
)

// Event is one broadcast sample with its default-format rendering.
type Event struct {
	Sample ringbuf.Sample
	Text   string
}

// FanOut copies events from a single input channel to N output channels.
// When an output channel is full the event is dropped for that subscriber
// only.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan Event
	bufSize int

	// OnDrop is called when an event is dropped for a subscriber.
	// subscriberIdx is the 0-based index of the slow consumer.
	OnDrop func(subscriberIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{bufSize: outputBufferSize}
}

// Subscribe creates and returns a new output channel. Subscribe before Run.
func (f *FanOut) Subscribe() <-chan Event {
	ch := make(chan Event, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from input and fans out to all subscribers. Output channels
// are closed when ctx is cancelled or input is closed.
func (f *FanOut) Run(ctx context.Context, input <-chan Event) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-input:
			if !ok {
				return
			}
			f.publish(ev)
		}
	}
}

func (f *FanOut) publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i, ch := range f.outputs {
		select {
		case ch <- ev:
		default:
			if f.OnDrop != nil {
				f.OnDrop(i)
			} else {
				log.Printf("[bus] output channel %d full, dropping sample %d", i, ev.Sample.Seq)
			}
		}
	}
}

// ChannelStat is the saturation of one subscriber channel.
type ChannelStat struct {
	Len int
	Cap int
}

// ChannelStats returns the (length, capacity) of each subscriber channel.
func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, ch := range f.outputs {
		stats[i] = ChannelStat{Len: len(ch), Cap: cap(ch)}
	}
	return stats
}
