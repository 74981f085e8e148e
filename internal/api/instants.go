package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"chronoutil/internal/logger"
	redisstore "chronoutil/internal/store/redis"
	"chronoutil/internal/store/sqlite"
	"chronoutil/pkg/chrono"
	"chronoutil/pkg/conversion"
)

// RecordRequest is the POST /api/v1/instants body. An empty At records
// the current time.
type RecordRequest struct {
	Label string `json:"label"`
	At    string `json:"at"`
}

// LatestView is the answer to a latest-instant lookup.
type LatestView struct {
	Label  string  `json:"label"`
	At     Instant `json:"at"`
	ID     int64   `json:"id,omitempty"`
	Source string  `json:"source"`
}

func (s *Server) handleInstants(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		switch {
		case q.Get("id") != "":
			s.getInstant(w, r)
		case q.Get("latest") != "":
			s.latestInstant(w, r)
		default:
			s.rangeInstants(w, r)
		}
	case http.MethodPost:
		s.recordInstant(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/v1/instants?id=N
func (s *Server) getInstant(w http.ResponseWriter, r *http.Request) {
	id, err := conversion.StringToNumber[int64](r.URL.Query().Get("id"), 10)
	if err != nil {
		badRequest(w, err)
		return
	}
	e, err := s.deps.Journal.Get(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GET /api/v1/instants?latest=label
//
// Redis answers first when configured; the journal is the fallback.
func (s *Server) latestInstant(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	o, err := s.parseRenderOpts(q)
	if err != nil {
		badRequest(w, err)
		return
	}
	label := q.Get("latest")

	if s.deps.Redis != nil {
		dt, err := s.deps.Redis.GetInstant(r.Context(), label)
		if err == nil {
			writeJSON(w, http.StatusOK, LatestView{Label: label, At: o.instant(dt), Source: "redis"})
			return
		}
		if !errors.Is(err, redisstore.ErrNotFound) {
			s.deps.Logger.Warn("redis latest lookup failed",
				append(logger.LogWithTrace(r.Context()), "label", label, "error", err)...)
		}
	}

	e, err := s.deps.Journal.Latest(r.Context(), label)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, LatestView{Label: label, At: o.instant(e.At), ID: e.ID, Source: "sqlite"})
}

// GET /api/v1/instants?label=x&from=...&to=...
func (s *Server) rangeInstants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := chrono.DateTime(0), chrono.DateTime(chrono.MaxTicks)
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = s.parseInstant(v); err != nil {
			badRequest(w, err)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = s.parseInstant(v); err != nil {
			badRequest(w, err)
			return
		}
	}
	entries, err := s.deps.Journal.Range(r.Context(), q.Get("label"), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []sqlite.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// POST /api/v1/instants  {"label":"deploy","at":"2024-03-05 07:08:09"}
func (s *Server) recordInstant(w http.ResponseWriter, r *http.Request) {
	if s.guard != nil {
		if err := s.guard.Check(r); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	now := chrono.NowFrom(s.deps.Clock)
	at := now
	if req.At != "" {
		var err error
		if at, err = s.parseInstant(req.At); err != nil {
			badRequest(w, err)
			return
		}
	}

	ctx := r.Context()
	e, err := s.deps.Journal.Record(ctx, req.Label, at, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m := s.deps.Metrics; m != nil {
		m.InstantsWritten.Inc()
	}
	if s.deps.Redis != nil {
		if err := s.deps.Redis.SetInstant(ctx, req.Label, at, 0); err != nil {
			s.deps.Logger.Warn("redis cache write failed",
				append(logger.LogWithTrace(ctx), "label", req.Label, "error", err)...)
		}
	}
	s.deps.Logger.Info("instant recorded",
		append(logger.LogWithTrace(ctx), "id", e.ID, "label", e.Label, "at", e.At.String())...)
	writeJSON(w, http.StatusCreated, e)
}

// GET /api/v1/stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	if s.deps.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "stream disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Hub.Stats())
}
