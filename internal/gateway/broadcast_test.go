package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chronoutil/internal/metrics"
	"chronoutil/internal/ringbuf"
	"chronoutil/pkg/chrono"
)

// frameMsg is the parsed clock frame.
type frameMsg struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq"`
	Ticks uint64 `json:"ticks"`
	Text  string `json:"text"`
}

func TestBuildFrameFormat(t *testing.T) {
	at := chrono.FromDateAndTime(2024, 3, 5, 7, 8, 9, 250)
	s := ringbuf.Sample{Seq: 42, At: at}

	tests := []struct {
		key  formatKey
		want string
	}{
		{formatKey{chrono.DateAndTime, false}, "2024-03-05 07:08:09.250"},
		{formatKey{chrono.DateAndTime, true}, "2024-03-05 07:08:09"},
		{formatKey{chrono.DateOnly, false}, "2024-03-05"},
		{formatKey{chrono.DateTimeAndShortWeekday, true}, "Tue 2024-03-05 07:08:09"},
	}
	for _, tt := range tests {
		buf := buildFrame(s, tt.key)

		var msg frameMsg
		if err := json.Unmarshal(buf, &msg); err != nil {
			t.Fatalf("frame is not valid JSON: %v\nraw: %s", err, buf)
		}
		if msg.Type != "clock" || msg.Seq != 42 || msg.Ticks != at.Ticks() {
			t.Errorf("frame header: got %+v", msg)
		}
		if msg.Text != tt.want {
			t.Errorf("%v noMs=%v: text %q, want %q", tt.key.format, tt.key.noMs, msg.Text, tt.want)
		}
	}
}

func newTestHub(t *testing.T, clock chrono.Clock) (*Hub, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewHub(Config{
		Clock:         clock,
		Ring:          ringbuf.New(16),
		DefaultFormat: chrono.DateAndTime,
		ReplaySize:    8,
		Metrics:       m,
	}), m
}

func TestHubSampleFlushWithoutClients(t *testing.T) {
	clock := chrono.NewManualClock(chrono.FromDate(2024, 1, 1))
	var texts []string
	hub, m := newTestHub(t, clock)
	hub.cfg.OnSample = func(_ ringbuf.Sample, text string) { texts = append(texts, text) }

	for i := 0; i < 3; i++ {
		if !hub.Sample() {
			t.Fatalf("Sample %d dropped", i)
		}
		clock.Advance(chrono.Second)
	}
	if got := hub.Flush(); got != 3 {
		t.Fatalf("Flush() = %d, want 3", got)
	}

	st := hub.Stats()
	if st.LastSeq != 3 || st.Buffered != 0 || st.Clients != 0 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.LagSamples != 3 {
		t.Errorf("LagSamples = %d, want 3", st.LagSamples)
	}
	// The ring is drained after all three samples, so the first one waited 3s
	if st.LagP99Ms < 2000 || st.LagP99Ms > 3000 {
		t.Errorf("LagP99Ms = %v, want within [2000,3000]", st.LagP99Ms)
	}
	want := []string{"2024-01-01 00:00:00", "2024-01-01 00:00:01", "2024-01-01 00:00:02"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("OnSample texts = %v, want %v", texts, want)
	}
	if got := testutil.ToFloat64(m.ClockSamples); got != 3 {
		t.Errorf("ClockSamples = %v, want 3", got)
	}
}

func TestHubRingOverflow(t *testing.T) {
	hub, m := newTestHub(t, chrono.FixedClock{At: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	dropped := 0
	for i := 0; i < 20; i++ {
		if !hub.Sample() {
			dropped++
		}
	}
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}
	if got := testutil.ToFloat64(m.RingBufOverflow); got != 4 {
		t.Errorf("RingBufOverflow = %v, want 4", got)
	}
}

func dialHub(t *testing.T, hub *Hub, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

// readMessages reads one WebSocket message and splits coalesced frames.
func readMessages(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out []map[string]any
	for _, line := range strings.Split(string(data), "\n") {
		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		out = append(out, msg)
	}
	return out
}

// readUntil reads until a message of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		for _, msg := range readMessages(t, conn) {
			if msg["type"] == typ {
				return msg
			}
		}
	}
	t.Fatalf("no %q message received", typ)
	return nil
}

func TestHubWebSocketStream(t *testing.T) {
	clock := chrono.NewManualClock(chrono.FromDateAndTime(2024, 3, 5, 7, 8, 9, 0))
	hub, _ := newTestHub(t, clock)
	conn := dialHub(t, hub, "format=date_only")

	hub.Sample()
	hub.Flush()

	msg := readUntil(t, conn, "clock")
	if msg["text"] != "2024-03-05" {
		t.Errorf("text = %v, want 2024-03-05", msg["text"])
	}
	if msg["seq"].(float64) != 1 {
		t.Errorf("seq = %v, want 1", msg["seq"])
	}

	// Switch this client to time only, without milliseconds
	if err := conn.WriteJSON(map[string]any{"type": "FORMAT", "format": "time_only", "no_ms": true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok := readUntil(t, conn, "FORMAT_OK")
	if ok["format"] != chrono.TimeOnly.String() {
		t.Errorf("FORMAT_OK format = %v", ok["format"])
	}

	clock.Advance(chrono.Minute)
	hub.Sample()
	hub.Flush()
	msg = readUntil(t, conn, "clock")
	if msg["text"] != "07:09:09" {
		t.Errorf("text = %v, want 07:09:09", msg["text"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "BOGUS"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	errMsg := readUntil(t, conn, "error")
	if !strings.Contains(errMsg["error"].(string), "BOGUS") {
		t.Errorf("error = %v", errMsg["error"])
	}
}

func TestHubReplayOnReconnect(t *testing.T) {
	clock := chrono.NewManualClock(chrono.FromDate(2024, 1, 1))
	hub, _ := newTestHub(t, clock)
	for i := 0; i < 5; i++ {
		hub.Sample()
		clock.Advance(chrono.Second)
	}
	hub.Flush()

	conn := dialHub(t, hub, "after_seq=3&no_ms=1")
	var seqs []float64
	for len(seqs) < 2 {
		for _, msg := range readMessages(t, conn) {
			if msg["type"] == "clock" {
				seqs = append(seqs, msg["seq"].(float64))
			}
		}
	}
	if seqs[0] != 4 || seqs[1] != 5 {
		t.Errorf("replayed seqs = %v, want [4 5]", seqs)
	}
}

func TestServeWSRejectsBadFormat(t *testing.T) {
	hub, _ := newTestHub(t, chrono.SystemClock{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/?format=nope", nil)
	hub.ServeWS(rec, req)
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
