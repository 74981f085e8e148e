package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	gocache "github.com/patrickmn/go-cache"

	"chronoutil/pkg/chrono"
	"chronoutil/pkg/conversion"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// badRequest reports conversion and invalid date errors as 400 and
// anything else as 500.
func badRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, conversion.ErrConversion) || errors.Is(err, chrono.ErrInvalidDate) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func onlyGET(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// Instant is a DateTime as rendered by the API.
type Instant struct {
	Ticks     uint64 `json:"ticks"`
	Text      string `json:"text"`
	Weekday   string `json:"weekday"`
	DayOfYear int    `json:"day_of_year"`
	LeapYear  bool   `json:"leap_year"`
}

// Span is a TimeSpan as rendered by the API.
type Span struct {
	Ticks        int64   `json:"ticks"`
	Normal       string  `json:"normal"`
	Measures     string  `json:"measures"`
	Days         int     `json:"days"`
	Hours        int     `json:"hours"`
	Minutes      int     `json:"minutes"`
	Seconds      int     `json:"seconds"`
	Milliseconds int     `json:"milliseconds"`
	TotalSeconds float64 `json:"total_seconds"`
}

type renderOpts struct {
	format chrono.DateTimeOutputFormat
	noMs   bool
}

func (s *Server) parseRenderOpts(q url.Values) (renderOpts, error) {
	o := renderOpts{format: s.deps.DefaultFormat, noMs: q.Get("no_ms") == "1"}
	if name := q.Get("format"); name != "" {
		f, err := chrono.ParseOutputFormat(name)
		if err != nil {
			return o, err
		}
		o.format = f
	}
	return o, nil
}

func (o renderOpts) instant(dt chrono.DateTime) Instant {
	return Instant{
		Ticks:     dt.Ticks(),
		Text:      dt.Format(o.format, o.noMs),
		Weekday:   dt.DayOfWeek().String(),
		DayOfYear: dt.DayOfYear(),
		LeapYear:  dt.IsLeapYear(),
	}
}

func (o renderOpts) span(ts chrono.TimeSpan) Span {
	return Span{
		Ticks:        ts.Ticks(),
		Normal:       ts.Format(chrono.TimeSpanNormal, o.noMs),
		Measures:     ts.Format(chrono.TimeSpanWithMeasures, o.noMs),
		Days:         ts.Days(),
		Hours:        ts.Hours(),
		Minutes:      ts.Minutes(),
		Seconds:      ts.Seconds(),
		Milliseconds: ts.Milliseconds(),
		TotalSeconds: ts.TotalSeconds(),
	}
}

// parseInstant parses text as a DateTime, answering repeats from the cache.
func (s *Server) parseInstant(text string) (chrono.DateTime, error) {
	if v, ok := s.parsed.Get(text); ok {
		if m := s.deps.Metrics; m != nil {
			m.ParseCacheHits.Inc()
		}
		return v.(chrono.DateTime), nil
	}
	if m := s.deps.Metrics; m != nil {
		m.ParseCacheMiss.Inc()
	}
	dt, err := chrono.ParseDateTime(text)
	if err != nil {
		if m := s.deps.Metrics; m != nil {
			m.ParseFailures.Inc()
		}
		return 0, err
	}
	s.parsed.Set(text, dt, gocache.DefaultExpiration)
	return dt, nil
}

// instantParam parses the named query parameter, defaulting to now when
// it is absent.
func (s *Server) instantParam(q url.Values, name string) (chrono.DateTime, error) {
	text := q.Get(name)
	if text == "" {
		return chrono.NowFrom(s.deps.Clock), nil
	}
	return s.parseInstant(text)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		s.deps.Health.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/v1/now?format=date_only&no_ms=1
func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	o, err := s.parseRenderOpts(r.URL.Query())
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o.instant(chrono.NowFrom(s.deps.Clock)))
}

// GET /api/v1/parse?text=2024-03-05+07:08:09
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	o, err := s.parseRenderOpts(q)
	if err != nil {
		badRequest(w, err)
		return
	}
	text := q.Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	dt, err := s.parseInstant(text)
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o.instant(dt))
}

// GET /api/v1/diff?from=...&to=...   (to defaults to now)
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	o, err := s.parseRenderOpts(q)
	if err != nil {
		badRequest(w, err)
		return
	}
	if q.Get("from") == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	from, err := s.parseInstant(q.Get("from"))
	if err != nil {
		badRequest(w, err)
		return
	}
	to, err := s.instantParam(q, "to")
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o.span(to.Sub(from)))
}

// GET /api/v1/shift?at=...&by=1:00:00[&op=sub]   (at defaults to now)
func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	o, err := s.parseRenderOpts(q)
	if err != nil {
		badRequest(w, err)
		return
	}
	at, err := s.instantParam(q, "at")
	if err != nil {
		badRequest(w, err)
		return
	}
	by, err := chrono.ParseTimeSpan(q.Get("by"))
	if err != nil {
		badRequest(w, err)
		return
	}

	var out chrono.DateTime
	switch q.Get("op") {
	case "", "add":
		out = at.Add(by)
	case "sub":
		out = at.Subtract(by)
	default:
		writeError(w, http.StatusBadRequest, "op must be add or sub")
		return
	}
	if out.IsNull() {
		writeError(w, http.StatusUnprocessableEntity, "result out of range")
		return
	}
	writeJSON(w, http.StatusOK, o.instant(out))
}

// GET /api/v1/span?text=1.02:03:04   or   ?ms=1500
func (s *Server) handleSpan(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	o, err := s.parseRenderOpts(q)
	if err != nil {
		badRequest(w, err)
		return
	}

	var ts chrono.TimeSpan
	switch {
	case q.Get("text") != "":
		ts, err = chrono.ParseTimeSpan(q.Get("text"))
	case q.Get("ms") != "":
		var ms float64
		ms, err = conversion.StringToFloat(q.Get("ms"))
		ts = chrono.FromMilliseconds(ms)
	default:
		writeError(w, http.StatusBadRequest, "text or ms is required")
		return
	}
	if err != nil {
		badRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o.span(ts))
}
