package api

import (
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"chronoutil/internal/logger"
	"chronoutil/pkg/chrono"
)

// TraceHeader carries the request trace ID in both directions.
const TraceHeader = "X-Trace-ID"

var requestSeq atomic.Uint64

// withTrace tags each request with a trace ID, reusing the caller's
// X-Trace-ID when present.
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := r.Header.Get(TraceHeader)
		if tid == "" {
			seq := strconv.FormatUint(requestSeq.Add(1), 10)
			tid = logger.GenerateTraceID("req"+seq, chrono.NowFrom(s.deps.Clock))
		}
		w.Header().Set(TraceHeader, tid)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), tid)))
	})
}

// limiterSet holds one token bucket per client address. Idle buckets
// expire from the cache.
type limiterSet struct {
	limit rate.Limit
	burst int
	byIP  *gocache.Cache
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	if burst < 1 {
		burst = 1
	}
	return &limiterSet{
		limit: rate.Limit(perSecond),
		burst: burst,
		byIP:  gocache.New(10*time.Minute, 20*time.Minute),
	}
}

func (l *limiterSet) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if v, ok := l.byIP.Get(host); ok {
		return v.(*rate.Limiter).Allow()
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.byIP.Add(host, lim, gocache.DefaultExpiration); err != nil {
		// lost the race with another request from the same host
		if v, ok := l.byIP.Get(host); ok {
			lim = v.(*rate.Limiter)
		}
	}
	return lim.Allow()
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r.RemoteAddr) {
			if m := s.deps.Metrics; m != nil {
				m.RateLimited.Inc()
			}
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under the route label.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)

		if m := s.deps.Metrics; m != nil {
			m.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
			m.RequestDur.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
		if rec.code >= http.StatusInternalServerError {
			s.deps.Logger.Error("request failed",
				append(logger.LogWithTrace(r.Context()), "route", route, "code", rec.code)...)
		}
	})
}
