package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chronoutil/pkg/chrono"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ParseFailures.Inc()
	m.RequestsTotal.WithLabelValues("/api/v1/now", "200").Inc()

	if got := testutil.ToFloat64(m.ParseFailures); got != 1 {
		t.Errorf("ParseFailures = %v, want 1", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestHealthStatus_States(t *testing.T) {
	h := NewHealthStatus(chrono.FixedClock{})
	if s, code := h.Status(); s != "degraded" || code != http.StatusServiceUnavailable {
		t.Errorf("fresh status = %s/%d, want degraded/503", s, code)
	}
	h.SetSQLiteOK(true)
	if s, code := h.Status(); s != "healthy" || code != http.StatusOK {
		t.Errorf("sqlite only = %s/%d, want healthy/200", s, code)
	}
	h.SetRedisEnabled(true)
	if s, _ := h.Status(); s != "degraded" {
		t.Errorf("redis enabled but down = %s, want degraded", s)
	}
	h.SetSQLiteOK(false)
	if s, _ := h.Status(); s != "unhealthy" {
		t.Errorf("both down = %s, want unhealthy", s)
	}
}

func TestServer_Healthz(t *testing.T) {
	start := chrono.FromDateAndTime(2024, 3, 5, 9, 0, 0, 0)
	clock := chrono.NewManualClock(start)
	h := NewHealthStatus(clock)
	h.SetSQLiteOK(true)
	h.SetLastSample(start)
	clock.Advance(90 * chrono.Second)

	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	srv := NewServer(":0", h, reg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["uptime"] != "00:01:30" {
		t.Errorf("uptime = %v", body["uptime"])
	}
	if body["sample_age"] != "1 min 30 s" {
		t.Errorf("sample_age = %v", body["sample_age"])
	}
	if body["last_sample"] != "2024-03-05 09:00:00" {
		t.Errorf("last_sample = %v", body["last_sample"])
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "chronod_ws_clients") {
		t.Error("expected chronod metrics in /metrics output")
	}
}
