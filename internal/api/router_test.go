package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chronoutil/internal/businessday"
	"chronoutil/internal/metrics"
	"chronoutil/internal/store/sqlite"
	"chronoutil/pkg/chrono"
)

const testSecret = "JBSWY3DPEHPK3PXP"

var testNow = time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*Deps)) (*Server, *metrics.Metrics) {
	t.Helper()
	j, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	m := metrics.NewMetrics(prometheus.NewRegistry())
	d := Deps{
		Clock: chrono.FixedClock{At: testNow},
		Calendar: businessday.New(
			[]chrono.DayOfWeek{chrono.Saturday, chrono.Sunday},
			[]businessday.Holiday{{Date: chrono.FromDate(2024, 3, 11), Name: "Founders Day"}},
		),
		Journal:       j,
		Metrics:       m,
		DefaultFormat: chrono.DateAndTime,
	}
	if mutate != nil {
		mutate(&d)
	}
	return NewServer(d), m
}

func get(t *testing.T, h http.Handler, path string, q url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if q != nil {
		target += "?" + q.Encode()
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestNow(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/now", url.Values{"format": {"date_time_and_weekday"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got Instant
	decode(t, rec, &got)
	if got.Text != "Tuesday 2024-03-05 07:08:09" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Ticks != chrono.FromDateAndTime(2024, 3, 5, 7, 8, 9, 0).Ticks() {
		t.Errorf("ticks = %d", got.Ticks)
	}
	if !got.LeapYear || got.DayOfYear != 65 || got.Weekday != "Tuesday" {
		t.Errorf("got %+v", got)
	}
	if rec.Header().Get(TraceHeader) == "" {
		t.Error("missing trace header")
	}
}

func TestTraceHeaderPropagated(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/now", nil)
	req.Header.Set(TraceHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(TraceHeader); got != "abc-123" {
		t.Errorf("trace header = %q, want abc-123", got)
	}
}

func TestParse(t *testing.T) {
	s, m := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		text string
		code int
		want string
	}{
		{"2024-03-05 07:08:09", http.StatusOK, "2024-03-05 07:08:09"},
		{"2024-03-05T07:08:09.5Z", http.StatusOK, "2024-03-05 07:08:09.500"},
		{"2024-02-30", http.StatusBadRequest, ""},
		{"garbage", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		rec := get(t, h, "/api/v1/parse", url.Values{"text": {tt.text}})
		if rec.Code != tt.code {
			t.Errorf("parse(%q): status %d, want %d (%s)", tt.text, rec.Code, tt.code, rec.Body)
			continue
		}
		if tt.code != http.StatusOK {
			var e map[string]string
			decode(t, rec, &e)
			if e["error"] == "" {
				t.Errorf("parse(%q): missing error message", tt.text)
			}
			continue
		}
		var got Instant
		decode(t, rec, &got)
		if got.Text != tt.want {
			t.Errorf("parse(%q) = %q, want %q", tt.text, got.Text, tt.want)
		}
	}

	get(t, h, "/api/v1/parse", url.Values{"text": {"2024-03-05 07:08:09"}})
	if got := testutil.ToFloat64(m.ParseCacheHits); got != 1 {
		t.Errorf("ParseCacheHits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ParseFailures); got != 2 {
		t.Errorf("ParseFailures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/parse", "400")); got != 2 {
		t.Errorf("requests{400} = %v, want 2", got)
	}
}

func TestDiff(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/diff", url.Values{"from": {"2024-01-01"}, "to": {"2025-01-01"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got Span
	decode(t, rec, &got)
	if got.Days != 366 || got.Normal != "366.00:00:00" {
		t.Errorf("got %+v", got)
	}

	// to defaults to now
	rec = get(t, s.Handler(), "/api/v1/diff", url.Values{"from": {"2024-03-05 07:00:00"}})
	decode(t, rec, &got)
	if got.Minutes != 8 || got.Seconds != 9 {
		t.Errorf("diff to now = %+v", got)
	}

	if rec := get(t, s.Handler(), "/api/v1/diff", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing from: status %d", rec.Code)
	}
}

func TestShift(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := get(t, h, "/api/v1/shift", url.Values{"at": {"2024-02-28 12:00:00"}, "by": {"1.00:00:00"}})
	var got Instant
	decode(t, rec, &got)
	if got.Text != "2024-02-29 12:00:00" {
		t.Errorf("add = %q", got.Text)
	}

	rec = get(t, h, "/api/v1/shift", url.Values{"at": {"2024-03-01"}, "by": {"1.00:00:00"}, "op": {"sub"}})
	decode(t, rec, &got)
	if got.Text != "2024-02-29 00:00:00" {
		t.Errorf("sub = %q", got.Text)
	}

	rec = get(t, h, "/api/v1/shift", url.Values{"at": {"9999-12-31"}, "by": {"2.00:00:00"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("overflow: status %d, want 422", rec.Code)
	}

	rec = get(t, h, "/api/v1/shift", url.Values{"by": {"nonsense"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad span: status %d, want 400", rec.Code)
	}
}

func TestSpan(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := get(t, h, "/api/v1/span", url.Values{"ms": {"90000"}})
	var got Span
	decode(t, rec, &got)
	if got.Normal != "00:01:30" || got.Minutes != 1 || got.Seconds != 30 {
		t.Errorf("ms span = %+v", got)
	}

	rec = get(t, h, "/api/v1/span", url.Values{"text": {"1.02:03:04.005"}})
	decode(t, rec, &got)
	if got.Days != 1 || got.Hours != 2 || got.Milliseconds != 5 {
		t.Errorf("text span = %+v", got)
	}

	if rec := get(t, h, "/api/v1/span", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty: status %d", rec.Code)
	}
}

func TestCalendar(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/calendar", url.Values{"year": {"2024"}, "month": {"2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got MonthView
	decode(t, rec, &got)
	if got.DaysInMonth != 29 || !got.LeapYear || len(got.Days) != 29 {
		t.Errorf("got %+v", got)
	}
	if got.BusinessDays != 21 {
		t.Errorf("business days = %d, want 21", got.BusinessDays)
	}
	if got.Days[0].Weekday != "Thursday" {
		t.Errorf("Feb 1 2024 = %s, want Thursday", got.Days[0].Weekday)
	}

	// defaults to the clock's month; March 2024 has the holiday
	rec = get(t, s.Handler(), "/api/v1/calendar", nil)
	decode(t, rec, &got)
	if got.Month != 3 || got.Days[10].Holiday != "Founders Day" || got.Days[10].BusinessDay {
		t.Errorf("march day 11 = %+v", got.Days[10])
	}

	rec = get(t, s.Handler(), "/api/v1/calendar", url.Values{"year": {"2024"}, "month": {"13"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("month 13: status %d", rec.Code)
	}
}

func TestBusinessDay(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/v1/businessday", url.Values{
		"at":  {"2024-03-08 09:30:00"},
		"add": {"1"},
		"to":  {"2024-03-15"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got BusinessDayView
	decode(t, rec, &got)
	if !got.BusinessDay || got.Description != "business day" {
		t.Errorf("got %+v", got)
	}
	// Monday the 11th is a holiday
	if got.Next == nil || got.Next.Text != "2024-03-12 00:00:00" {
		t.Errorf("next = %+v", got.Next)
	}
	if got.Added == nil || got.Added.Text != "2024-03-12 09:30:00" {
		t.Errorf("added = %+v", got.Added)
	}
	// 8, 12, 13, 14
	if got.Between == nil || *got.Between != 4 {
		t.Errorf("between = %v, want 4", got.Between)
	}
}

func TestHolidays(t *testing.T) {
	s, _ := newTestServer(t, func(d *Deps) {
		d.Calendar.Replace(
			[]chrono.DayOfWeek{chrono.Saturday, chrono.Sunday},
			[]businessday.Holiday{
				{Date: chrono.FromDate(2024, 3, 11), Name: "Founders Day"},
				{Date: chrono.FromDate(2023, 12, 25), Name: "Christmas"},
			},
		)
	})
	h := s.Handler()

	rec := get(t, h, "/api/v1/holidays", url.Values{"format": {"date_only"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got HolidaysView
	decode(t, rec, &got)
	if len(got.Weekend) != 2 || got.Weekend[0] != "Saturday" || got.Weekend[1] != "Sunday" {
		t.Errorf("weekend = %v", got.Weekend)
	}
	if len(got.Holidays) != 2 || got.Holidays[0].Name != "Christmas" || got.Holidays[1].Date.Text != "2024-03-11" {
		t.Errorf("holidays = %+v", got.Holidays)
	}

	rec = get(t, h, "/api/v1/holidays", url.Values{"year": {"2024"}})
	decode(t, rec, &got)
	if len(got.Holidays) != 1 || got.Holidays[0].Name != "Founders Day" {
		t.Errorf("2024 holidays = %+v", got.Holidays)
	}

	if rec := get(t, h, "/api/v1/holidays", url.Values{"year": {"soon"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad year status = %d", rec.Code)
	}
}

func postInstant(t *testing.T, h http.Handler, body string, code string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/instants", strings.NewReader(body))
	if code != "" {
		req.Header.Set(TOTPHeader, code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInstants(t *testing.T) {
	s, m := newTestServer(t, nil)
	h := s.Handler()

	rec := postInstant(t, h, `{"label":"deploy","at":"2024-03-01 10:00:00"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body)
	}
	var e sqlite.Entry
	decode(t, rec, &e)
	if e.At != chrono.FromDateAndTime(2024, 3, 1, 10, 0, 0, 0) || e.RecordedAt != chrono.FromGoTime(testNow) {
		t.Errorf("entry = %+v", e)
	}

	postInstant(t, h, `{"label":"deploy"}`, "")
	postInstant(t, h, `{"label":"backup","at":"2024-02-01"}`, "")
	if got := testutil.ToFloat64(m.InstantsWritten); got != 3 {
		t.Errorf("InstantsWritten = %v, want 3", got)
	}

	rec = get(t, h, "/api/v1/instants", url.Values{"latest": {"deploy"}})
	var latest LatestView
	decode(t, rec, &latest)
	if latest.Source != "sqlite" || latest.At.Text != "2024-03-05 07:08:09" {
		t.Errorf("latest = %+v", latest)
	}

	rec = get(t, h, "/api/v1/instants", url.Values{"from": {"2024-02-15"}})
	var entries []sqlite.Entry
	decode(t, rec, &entries)
	if len(entries) != 2 || entries[0].Label != "deploy" {
		t.Errorf("range = %+v", entries)
	}

	rec = get(t, h, "/api/v1/instants", url.Values{"id": {"999"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id: status %d", rec.Code)
	}

	for _, body := range []string{`{`, `{"label":""}`, `{"label":"x","at":"bogus"}`} {
		if rec := postInstant(t, h, body, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s: status %d, want 400", body, rec.Code)
		}
	}
}

func TestInstantsTOTP(t *testing.T) {
	s, _ := newTestServer(t, func(d *Deps) { d.TOTPSecret = testSecret })
	h := s.Handler()

	if rec := postInstant(t, h, `{"label":"x"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no code: status %d, want 401", rec.Code)
	}
	if rec := postInstant(t, h, `{"label":"x"}`, "000000"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong code: status %d, want 401", rec.Code)
	}

	code, err := NewTOTPGuard(testSecret, chrono.FixedClock{At: testNow}).Code()
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	if rec := postInstant(t, h, `{"label":"x"}`, code); rec.Code != http.StatusCreated {
		t.Errorf("valid code: status %d, body %s", rec.Code, rec.Body)
	}
}

func TestJournalDisabled(t *testing.T) {
	s, _ := newTestServer(t, func(d *Deps) { d.Journal = nil })
	if rec := get(t, s.Handler(), "/api/v1/instants", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503", rec.Code)
	}
	if rec := get(t, s.Handler(), "/api/v1/stream", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stream status %d, want 503", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s, m := newTestServer(t, func(d *Deps) {
		d.RateLimit = 0.001
		d.RateBurst = 2
	})
	h := s.Handler()

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = get(t, h, "/api/v1/health", nil).Code
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
	if got := testutil.ToFloat64(m.RateLimited); got != 1 {
		t.Errorf("RateLimited = %v, want 1", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/now", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d, want 405", rec.Code)
	}
}
