package gateway

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chronoutil/internal/metrics"
	"chronoutil/internal/ringbuf"
	"chronoutil/pkg/chrono"
	"chronoutil/pkg/conversion"
)

// Config wires a Hub to its collaborators. Only Clock and Ring are required.
type Config struct {
	Clock         chrono.Clock
	Ring          *ringbuf.Ring
	DefaultFormat chrono.DateTimeOutputFormat
	ReplaySize    int
	Metrics       *metrics.Metrics

	// OnSample runs on the broadcaster goroutine after each sample has been
	// fanned out, with the sample rendered in the default format.
	OnSample func(s ringbuf.Sample, text string)
}

// Hub samples the clock into a ring buffer and streams each sample to the
// connected WebSocket clients, rendered in the format each client chose.
type Hub struct {
	cfg Config

	mu      sync.RWMutex
	clients map[*Client]bool

	seq    uint64 // producer side only
	replay *ReplayBuffer

	// Sample-to-emit lag
	Latency *LatencyTracker

	Broadcaster *Broadcaster
	upgrader    websocket.Upgrader
}

// NewHub creates a Hub.
func NewHub(cfg Config) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = chrono.SystemClock{}
	}
	if cfg.Ring == nil {
		cfg.Ring = ringbuf.New(1024)
	}
	h := &Hub{
		cfg:     cfg,
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(cfg.ReplaySize),
		Latency: NewLatencyTracker(10000),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// Sample reads the clock once and queues the reading for broadcast.
// It returns false when the ring is full and the reading was dropped.
// Producer side only.
func (h *Hub) Sample() bool {
	h.seq++
	s := ringbuf.Sample{Seq: h.seq, At: chrono.NowFrom(h.cfg.Clock)}
	if !h.cfg.Ring.Push(s) {
		if m := h.cfg.Metrics; m != nil {
			m.RingBufOverflow.Inc()
		}
		return false
	}
	if m := h.cfg.Metrics; m != nil {
		m.ClockSamples.Inc()
	}
	return true
}

// RunTicker samples the clock every interval until ctx is cancelled.
func (h *Hub) RunTicker(ctx context.Context, interval chrono.TimeSpan) {
	ticker := time.NewTicker(interval.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sample()
		}
	}
}

// Flush broadcasts every queued sample and returns how many were sent.
// Consumer side only.
func (h *Hub) Flush() int {
	return h.cfg.Ring.Drain(h.Broadcaster.Broadcast)
}

// RunBroadcaster drains the ring every poll interval until ctx is cancelled.
func (h *Hub) RunBroadcaster(ctx context.Context, poll chrono.TimeSpan) {
	ticker := time.NewTicker(poll.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Flush()
			return
		case <-ticker.C:
			h.Flush()
		}
	}
}

// ServeWS upgrades the request to a WebSocket clock stream. Optional query
// parameters: format (an output format name), no_ms=1 and after_seq=N to
// replay buffered samples newer than N.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := h.cfg.DefaultFormat
	if name := q.Get("format"); name != "" {
		f, err := chrono.ParseOutputFormat(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	var afterSeq uint64
	if v := q.Get("after_seq"); v != "" {
		n, err := conversion.StringToNumber[uint64](v, 10)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		afterSeq = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade failed: %v", err)
		return
	}
	h.Register(conn, format, q.Get("no_ms") == "1", afterSeq)
}

// Register adds conn as a client and starts its pumps. Samples newer than
// afterSeq still held in the replay buffer are sent first.
func (h *Hub) Register(conn *websocket.Conn, format chrono.DateTimeOutputFormat, noMs bool, afterSeq uint64) {
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    h,
		format: format,
		noMs:   noMs,
	}

	if afterSeq > 0 {
		for _, s := range h.replay.After(afterSeq) {
			select {
			case client.send <- client.frame(s):
			default:
			}
		}
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	if m := h.cfg.Metrics; m != nil {
		m.WSClients.Set(float64(count))
	}

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	if m := h.cfg.Metrics; m != nil {
		m.WSClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats summarises the stream for the HTTP API.
type Stats struct {
	Clients    int     `json:"clients"`
	LastSeq    uint64  `json:"last_seq"`
	Buffered   int     `json:"buffered"`
	Overflow   uint64  `json:"overflow"`
	LagP50Ms   float64 `json:"lag_p50_ms"`
	LagP95Ms   float64 `json:"lag_p95_ms"`
	LagP99Ms   float64 `json:"lag_p99_ms"`
	LagSamples int     `json:"lag_samples"`
}

// Stats returns a snapshot of the stream state.
func (h *Hub) Stats() Stats {
	p50, p95, p99 := h.Latency.Percentiles()
	return Stats{
		Clients:    h.ClientCount(),
		LastSeq:    h.replay.LastSeq(),
		Buffered:   h.cfg.Ring.Len(),
		Overflow:   h.cfg.Ring.Overflow(),
		LagP50Ms:   p50.TotalMilliseconds(),
		LagP95Ms:   p95.TotalMilliseconds(),
		LagP99Ms:   p99.TotalMilliseconds(),
		LagSamples: h.Latency.Count(),
	}
}
