package api

import (
	"net/http"
	"net/url"

	"chronoutil/pkg/chrono"
	"chronoutil/pkg/conversion"
)

// CalendarDay is one day of a month view.
type CalendarDay struct {
	Day         int    `json:"day"`
	Weekday     string `json:"weekday"`
	BusinessDay bool   `json:"business_day"`
	Holiday     string `json:"holiday,omitempty"`
}

// MonthView describes one calendar month.
type MonthView struct {
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	DaysInMonth  int           `json:"days_in_month"`
	LeapYear     bool          `json:"leap_year"`
	BusinessDays int           `json:"business_days"`
	Days         []CalendarDay `json:"days"`
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	return conversion.StringToNumber[int](v, 10)
}

// GET /api/v1/calendar?year=2024&month=2   (defaults to the current month)
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	now := chrono.NowFrom(s.deps.Clock)
	year, err := intParam(q, "year", now.Year())
	if err != nil {
		badRequest(w, err)
		return
	}
	month, err := intParam(q, "month", now.Month())
	if err != nil {
		badRequest(w, err)
		return
	}
	first, err := chrono.FromDateChecked(year, month, 1)
	if err != nil {
		badRequest(w, err)
		return
	}

	cal := s.deps.Calendar
	n := chrono.DaysInMonth(year, month)
	view := MonthView{
		Year:        year,
		Month:       month,
		DaysInMonth: n,
		LeapYear:    chrono.IsLeapYear(year),
		Days:        make([]CalendarDay, 0, n),
	}
	for i := 0; i < n; i++ {
		dt := first.Add(chrono.Day.Mul(int64(i)))
		day := CalendarDay{
			Day:         i + 1,
			Weekday:     dt.DayOfWeek().String(),
			BusinessDay: cal.IsBusinessDay(dt),
		}
		if name, ok := cal.HolidayName(dt); ok {
			day.Holiday = name
		}
		if day.BusinessDay {
			view.BusinessDays++
		}
		view.Days = append(view.Days, day)
	}
	writeJSON(w, http.StatusOK, view)
}

// BusinessDayView answers a business day query.
type BusinessDayView struct {
	At          Instant  `json:"at"`
	BusinessDay bool     `json:"business_day"`
	Description string   `json:"description"`
	Next        *Instant `json:"next,omitempty"`
	Prev        *Instant `json:"prev,omitempty"`
	Added       *Instant `json:"added,omitempty"`
	Between     *int     `json:"between,omitempty"`
}

// GET /api/v1/businessday?at=...[&add=N][&to=...]
func (s *Server) handleBusinessDay(w http.ResponseWriter, r *http.Request) {
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

	cal := s.deps.Calendar
	view := BusinessDayView{
		At:          o.instant(at),
		BusinessDay: cal.IsBusinessDay(at),
		Description: cal.Describe(at),
	}
	if next := cal.NextBusinessDay(at); !next.IsNull() {
		n := o.instant(next)
		view.Next = &n
	}
	if prev := cal.PrevBusinessDay(at); !prev.IsNull() {
		p := o.instant(prev)
		view.Prev = &p
	}

	if q.Get("add") != "" {
		n, err := intParam(q, "add", 0)
		if err != nil {
			badRequest(w, err)
			return
		}
		added := cal.AddBusinessDays(at, n)
		if added.IsNull() {
			writeError(w, http.StatusUnprocessableEntity, "result out of range")
			return
		}
		a := o.instant(added)
		view.Added = &a
	}
	if q.Get("to") != "" {
		to, err := s.parseInstant(q.Get("to"))
		if err != nil {
			badRequest(w, err)
			return
		}
		between := cal.BusinessDaysBetween(at, to)
		view.Between = &between
	}
	writeJSON(w, http.StatusOK, view)
}

// HolidayView is one configured holiday.
type HolidayView struct {
	Date Instant `json:"date"`
	Name string  `json:"name"`
}

// HolidaysView lists the calendar configuration.
type HolidaysView struct {
	Weekend  []string      `json:"weekend"`
	Holidays []HolidayView `json:"holidays"`
}

// GET /api/v1/holidays[?year=2024]
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	if !onlyGET(w, r) {
		return
	}
	q := r.URL.Query()
	o, err := s.parseRenderOpts(q)
	if err != nil {
		badRequest(w, err)
		return
	}
	year, err := intParam(q, "year", 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	cal := s.deps.Calendar
	view := HolidaysView{Weekend: []string{}, Holidays: []HolidayView{}}
	for _, d := range cal.Weekend() {
		view.Weekend = append(view.Weekend, d.String())
	}
	for _, h := range cal.Holidays() {
		if year != 0 && h.Date.Year() != year {
			continue
		}
		view.Holidays = append(view.Holidays, HolidayView{Date: o.instant(h.Date), Name: h.Name})
	}
	writeJSON(w, http.StatusOK, view)
}
