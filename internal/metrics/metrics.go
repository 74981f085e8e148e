package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chronoutil/pkg/chrono"
)

// Metrics holds all Prometheus metrics for chronod.
type Metrics struct {
	// HTTP API
	RequestsTotal *prometheus.CounterVec   // labels: route, code
	RequestDur    *prometheus.HistogramVec // labels: route
	RateLimited   prometheus.Counter

	// Parsing
	ParseFailures   prometheus.Counter
	ParseCacheHits  prometheus.Counter
	ParseCacheMiss  prometheus.Counter
	InstantsWritten prometheus.Counter

	// Clock stream
	ClockSamples    prometheus.Counter
	RingBufOverflow prometheus.Counter
	FramesSent      prometheus.Counter
	FramesDropped   prometheus.Counter
	WSClients       prometheus.Gauge
	BroadcastLag    prometheus.Histogram   // sample-to-emit latency
	FanoutDrops     *prometheus.CounterVec // labels: sink

	// Storage
	RedisWriteDur   prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Business day calendar
	HolidayReloads *prometheus.CounterVec // labels: result=ok|error
	HolidaysLoaded prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	fastBuckets := []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.01, 0.1}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronod_http_requests_total",
			Help: "HTTP API requests by route and status code",
		}, []string{"route", "code"}),
		RequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chronod_http_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),

		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_parse_failures_total",
			Help: "Date/time strings that failed to parse",
		}),
		ParseCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_parse_cache_hits_total",
			Help: "Parse requests answered from cache",
		}),
		ParseCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_parse_cache_misses_total",
			Help: "Parse requests that had to be parsed",
		}),
		InstantsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_instants_written_total",
			Help: "Instants recorded in the journal",
		}),

		ClockSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_clock_samples_total",
			Help: "Clock samples pushed to the broadcast ring",
		}),
		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped samples)",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_ws_frames_sent_total",
			Help: "Clock frames queued to WebSocket clients",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_ws_frames_dropped_total",
			Help: "Clock frames dropped because a client send buffer was full",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chronod_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		BroadcastLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronod_broadcast_lag_seconds",
			Help:    "Delay between sampling the clock and broadcasting the frame",
			Buckets: fastBuckets,
		}),

		FanoutDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronod_fanout_drops_total",
			Help: "Samples dropped because a sink channel was full",
		}, []string{"sink"}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronod_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronod_sqlite_commit_duration_seconds",
			Help:    "SQLite insert latency",
			Buckets: prometheus.DefBuckets,
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chronod_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronod_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker opened",
		}),

		HolidayReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronod_holiday_reloads_total",
			Help: "Holiday file reloads by result",
		}, []string{"result"}),
		HolidaysLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chronod_holidays_loaded",
			Help: "Holidays in the active business day calendar",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDur,
		m.RateLimited,
		m.ParseFailures,
		m.ParseCacheHits,
		m.ParseCacheMiss,
		m.InstantsWritten,
		m.ClockSamples,
		m.RingBufOverflow,
		m.FramesSent,
		m.FramesDropped,
		m.WSClients,
		m.BroadcastLag,
		m.FanoutDrops,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.HolidayReloads,
		m.HolidaysLoaded,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu    sync.RWMutex
	clock chrono.Clock

	RedisEnabled   bool            `json:"redis_enabled"`
	RedisConnected bool            `json:"redis_connected"`
	SQLiteOK       bool            `json:"sqlite_ok"`
	LastSample     chrono.DateTime `json:"last_sample"`
	Holidays       int             `json:"holidays"`

	// Liveness probe results
	RedisLatencyMs  float64         `json:"redis_latency_ms"`
	SQLiteLatencyMs float64         `json:"sqlite_latency_ms"`
	LastCheckAt     chrono.DateTime `json:"last_check_at"`
	StartedAt       chrono.DateTime `json:"started_at"`
}

// NewHealthStatus returns a default health status read against clock.
func NewHealthStatus(clock chrono.Clock) *HealthStatus {
	return &HealthStatus{
		clock:     clock,
		StartedAt: chrono.NowFrom(clock),
	}
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastSample(dt chrono.DateTime) {
	h.mu.Lock()
	h.LastSample = dt
	h.mu.Unlock()
}

func (h *HealthStatus) SetHolidays(n int) {
	h.mu.Lock()
	h.Holidays = n
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = chrono.NowFrom(h.clock)
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = chrono.NowFrom(h.clock)
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either client may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval chrono.TimeSpan) {
	go func() {
		ticker := time.NewTicker(interval.Duration())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// Status reports "healthy", "degraded" or "unhealthy" with the matching
// HTTP status code.
func (h *HealthStatus) Status() (string, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statusLocked()
}

func (h *HealthStatus) statusLocked() (string, int) {
	redisDown := h.RedisEnabled && !h.RedisConnected
	switch {
	case redisDown && !h.SQLiteOK:
		return "unhealthy", http.StatusServiceUnavailable
	case redisDown || !h.SQLiteOK:
		return "degraded", http.StatusServiceUnavailable
	}
	return "healthy", http.StatusOK
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus, httpCode := h.statusLocked()
	now := chrono.NowFrom(h.clock)

	sampleAge := ""
	if !h.LastSample.IsNull() {
		sampleAge = now.Sub(h.LastSample).Format(chrono.TimeSpanWithMeasures, false)
	}

	status := struct {
		Status          string          `json:"status"`
		Uptime          string          `json:"uptime"`
		RedisEnabled    bool            `json:"redis_enabled"`
		RedisConnected  bool            `json:"redis_connected"`
		RedisLatencyMs  float64         `json:"redis_latency_ms"`
		SQLiteOK        bool            `json:"sqlite_ok"`
		SQLiteLatencyMs float64         `json:"sqlite_latency_ms"`
		LastSample      chrono.DateTime `json:"last_sample"`
		SampleAge       string          `json:"sample_age"`
		Holidays        int             `json:"holidays"`
		LastCheckAt     chrono.DateTime `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          now.Sub(h.StartedAt).Format(chrono.TimeSpanNormal, true),
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastSample:      h.LastSample,
		SampleAge:       sampleAge,
		Holidays:        h.Holidays,
		LastCheckAt:     h.LastCheckAt,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server serving metrics from g.
func NewServer(addr string, health *HealthStatus, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handler exposes the server mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
