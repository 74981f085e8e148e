package gateway

import (
	"strconv"

	"chronoutil/internal/ringbuf"
	"chronoutil/pkg/chrono"
)

// Broadcaster renders clock frames and fans them out to clients.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// formatKey identifies one rendering of a sample.
type formatKey struct {
	format chrono.DateTimeOutputFormat
	noMs   bool
}

// Broadcast sends s to every client, rendering each distinct client format
// once. Clients whose send buffer is full miss the frame.
func (b *Broadcaster) Broadcast(s ringbuf.Sample) {
	h := b.hub
	now := chrono.NowFrom(h.cfg.Clock)
	lag := now.Sub(s.At)
	h.Latency.Record(lag)
	h.replay.Push(s)

	frames := make(map[formatKey][]byte, 2)
	var sent, dropped int

	h.mu.RLock()
	for client := range h.clients {
		key := client.formatKey()
		frame, ok := frames[key]
		if !ok {
			frame = buildFrame(s, key)
			frames[key] = frame
		}
		select {
		case client.send <- frame:
			sent++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if m := h.cfg.Metrics; m != nil {
		m.FramesSent.Add(float64(sent))
		m.FramesDropped.Add(float64(dropped))
		if !lag.IsNegative() {
			m.BroadcastLag.Observe(lag.TotalSeconds())
		}
	}
	if h.cfg.OnSample != nil {
		h.cfg.OnSample(s, s.At.Format(h.cfg.DefaultFormat, false))
	}
}

// buildFrame hand-crafts the frame JSON. Rendered dates only contain
// letters, digits, spaces and "-:." so no escaping is needed.
//
//	{"type":"clock","seq":7,"ticks":638396640000000000,"text":"2024-01-01 00:00:00"}
func buildFrame(s ringbuf.Sample, key formatKey) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, `{"type":"clock","seq":`...)
	buf = strconv.AppendUint(buf, s.Seq, 10)
	buf = append(buf, `,"ticks":`...)
	buf = strconv.AppendUint(buf, s.At.Ticks(), 10)
	buf = append(buf, `,"text":"`...)
	buf = s.At.AppendFormat(buf, key.format, key.noMs)
	buf = append(buf, `"}`...)
	return buf
}
