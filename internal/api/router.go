// Package api serves the chrono HTTP API: clock readings, parsing,
// arithmetic, calendars, business days and the instant journal.
package api

import (
	"log/slog"
	"net/http"

	gocache "github.com/patrickmn/go-cache"

	"chronoutil/internal/businessday"
	"chronoutil/internal/gateway"
	"chronoutil/internal/metrics"
	redisstore "chronoutil/internal/store/redis"
	"chronoutil/internal/store/sqlite"
	"chronoutil/pkg/chrono"
)

// Deps are the collaborators of the API. Clock and Calendar are required;
// a nil Journal, Redis, Hub, Health or Metrics disables what depends on it.
type Deps struct {
	Clock         chrono.Clock
	Calendar      *businessday.Calendar
	Journal       *sqlite.Journal
	Redis         *redisstore.Store
	Hub           *gateway.Hub
	Health        http.Handler
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	DefaultFormat chrono.DateTimeOutputFormat

	// TOTPSecret guards POST /api/v1/instants when non-empty.
	TOTPSecret string

	// RateLimit is requests per second per client address; 0 disables.
	RateLimit float64
	RateBurst int

	ParseCacheTTL chrono.TimeSpan
}

// Server holds the API state shared by the handlers.
type Server struct {
	deps    Deps
	parsed  *gocache.Cache
	limiter *limiterSet
	guard   *TOTPGuard
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = chrono.SystemClock{}
	}
	if d.Calendar == nil {
		d.Calendar = businessday.Default()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	ttl := d.ParseCacheTTL
	if ttl <= 0 {
		ttl = 5 * chrono.Minute
	}
	s := &Server{
		deps:   d,
		parsed: gocache.New(ttl.Duration(), 2*ttl.Duration()),
	}
	if d.RateLimit > 0 {
		s.limiter = newLimiterSet(d.RateLimit, d.RateBurst)
	}
	if d.TOTPSecret != "" {
		s.guard = NewTOTPGuard(d.TOTPSecret, d.Clock)
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "/api/v1/health", s.handleHealth)
	s.route(mux, "/api/v1/now", s.handleNow)
	s.route(mux, "/api/v1/parse", s.handleParse)
	s.route(mux, "/api/v1/diff", s.handleDiff)
	s.route(mux, "/api/v1/shift", s.handleShift)
	s.route(mux, "/api/v1/span", s.handleSpan)
	s.route(mux, "/api/v1/calendar", s.handleCalendar)
	s.route(mux, "/api/v1/businessday", s.handleBusinessDay)
	s.route(mux, "/api/v1/holidays", s.handleHolidays)
	s.route(mux, "/api/v1/instants", s.handleInstants)
	s.route(mux, "/api/v1/stream", s.handleStream)

	if s.deps.Hub != nil {
		mux.HandleFunc("/ws", s.deps.Hub.ServeWS)
	}

	return s.withTrace(s.withRateLimit(mux))
}

// NewRouter is shorthand for NewServer(d).Handler().
func NewRouter(d Deps) http.Handler {
	return NewServer(d).Handler()
}

func (s *Server) route(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.Handle(path, s.instrument(path, h))
}
