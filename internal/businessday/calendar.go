// Package businessday answers business day questions over chrono.DateTime
// values: weekends, holidays and business day arithmetic. A Calendar can be
// loaded from a YAML file and reloaded when the file changes.
package businessday

import (
	"sort"
	"sync"

	"chronoutil/pkg/chrono"
)

// lastDay is the day number of 9999-12-31.
const lastDay = int(chrono.MaxTicks / chrono.TicksPerDay)

// Holiday is a named non-business day.
type Holiday struct {
	Date chrono.DateTime `yaml:"date" json:"date"`
	Name string          `yaml:"name" json:"name"`
}

// Calendar is safe for concurrent use. Readers never observe a partially
// replaced calendar.
type Calendar struct {
	mu       sync.RWMutex
	weekend  [7]bool
	perWeek  int
	holidays map[int]string // day number -> name
}

// New returns a calendar with the given weekend days and holidays.
func New(weekend []chrono.DayOfWeek, holidays []Holiday) *Calendar {
	c := &Calendar{}
	c.Replace(weekend, holidays)
	return c
}

// Default returns a calendar with a Saturday/Sunday weekend and no holidays.
func Default() *Calendar {
	return New([]chrono.DayOfWeek{chrono.Saturday, chrono.Sunday}, nil)
}

// Replace swaps the weekend and holiday sets atomically.
func (c *Calendar) Replace(weekend []chrono.DayOfWeek, holidays []Holiday) {
	var w [7]bool
	for _, d := range weekend {
		if d >= chrono.Monday && d <= chrono.Sunday {
			w[d] = true
		}
	}
	perWeek := 0
	for _, off := range w {
		if !off {
			perWeek++
		}
	}
	set := make(map[int]string, len(holidays))
	for _, h := range holidays {
		set[dayNumber(h.Date)] = h.Name
	}

	c.mu.Lock()
	c.weekend = w
	c.perWeek = perWeek
	c.holidays = set
	c.mu.Unlock()
}

// Len returns the number of holidays.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.holidays)
}

// Holidays returns the holidays in date order.
func (c *Calendar) Holidays() []Holiday {
	c.mu.RLock()
	out := make([]Holiday, 0, len(c.holidays))
	for day, name := range c.holidays {
		out = append(out, Holiday{Date: fromDayNumber(day), Name: name})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Weekend returns the weekend days starting from Monday.
func (c *Calendar) Weekend() []chrono.DayOfWeek {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []chrono.DayOfWeek
	for d, off := range c.weekend {
		if off {
			out = append(out, chrono.DayOfWeek(d))
		}
	}
	return out
}

// IsWeekend reports whether dt falls on a weekend day.
func (c *Calendar) IsWeekend(dt chrono.DateTime) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weekend[dt.DayOfWeek()]
}

// IsHoliday reports whether dt falls on a holiday.
func (c *Calendar) IsHoliday(dt chrono.DateTime) bool {
	_, ok := c.HolidayName(dt)
	return ok
}

// HolidayName returns the name of the holiday on dt's day.
func (c *Calendar) HolidayName(dt chrono.DateTime) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.holidays[dayNumber(dt)]
	return name, ok
}

// IsBusinessDay reports whether dt is neither a weekend day nor a holiday.
func (c *Calendar) IsBusinessDay(dt chrono.DateTime) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isBusinessDayLocked(dayNumber(dt))
}

func (c *Calendar) isBusinessDayLocked(day int) bool {
	if c.weekend[day%7] {
		return false
	}
	_, holiday := c.holidays[day]
	return !holiday
}

// NextBusinessDay returns midnight of the first business day strictly
// after dt, or the null DateTime when there is none before year 10000.
func (c *Calendar) NextBusinessDay(dt chrono.DateTime) chrono.DateTime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	day, ok := c.stepLocked(dayNumber(dt), 1)
	if !ok {
		return 0
	}
	return fromDayNumber(day)
}

// PrevBusinessDay returns midnight of the last business day strictly
// before dt, or the null DateTime when there is none.
func (c *Calendar) PrevBusinessDay(dt chrono.DateTime) chrono.DateTime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	day, ok := c.stepLocked(dayNumber(dt), -1)
	if !ok {
		return 0
	}
	return fromDayNumber(day)
}

// AddBusinessDays moves dt by n business days, keeping its time of day.
// Negative n moves backwards. The result is null when it would leave the
// representable range or the calendar has no business days.
func (c *Calendar) AddBusinessDays(dt chrono.DateTime, n int) chrono.DateTime {
	if n == 0 {
		return dt
	}
	dir := 1
	if n < 0 {
		dir, n = -1, -n
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	day := dayNumber(dt)
	for ; n > 0; n-- {
		var ok bool
		if day, ok = c.stepLocked(day, dir); !ok {
			return 0
		}
	}
	return fromDayNumber(day).Add(dt.TimeOfDay())
}

// stepLocked finds the next business day after day in direction dir.
func (c *Calendar) stepLocked(day, dir int) (int, bool) {
	if c.perWeek == 0 {
		return 0, false
	}
	for day += dir; day >= 0 && day <= lastDay; day += dir {
		if c.isBusinessDayLocked(day) {
			return day, true
		}
	}
	return 0, false
}

// BusinessDaysBetween counts business days in [from, to) by calendar day.
// The count is negative when to is before from.
func (c *Calendar) BusinessDaysBetween(from, to chrono.DateTime) int {
	a, b := dayNumber(from), dayNumber(to)
	sign := 1
	if b < a {
		a, b, sign = b, a, -1
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	span := b - a
	count := span / 7 * c.perWeek
	for day := a + span/7*7; day < b; day++ {
		if !c.weekend[day%7] {
			count++
		}
	}
	for day := range c.holidays {
		if day >= a && day < b && !c.weekend[day%7] {
			count--
		}
	}
	return sign * count
}

// Describe returns "business day", "weekend" or "holiday: <name>".
func (c *Calendar) Describe(dt chrono.DateTime) string {
	if name, ok := c.HolidayName(dt); ok {
		return "holiday: " + name
	}
	if c.IsWeekend(dt) {
		return "weekend"
	}
	return "business day"
}

func dayNumber(dt chrono.DateTime) int { return int(dt.Ticks() / chrono.TicksPerDay) }

func fromDayNumber(day int) chrono.DateTime {
	return chrono.DateTime(uint64(day) * chrono.TicksPerDay)
}
