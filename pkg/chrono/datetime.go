package chrono

import (
	"errors"
	"fmt"
)

// DateTime is an instant counted in ticks since 0001-01-01 00:00:00.
//
// The zero value is the null DateTime. It doubles as the epoch instant, so
// a requested 0001-01-01 00:00:00 cannot be told apart from a failed
// construction. Use FromDateChecked when the difference matters.
type DateTime uint64

// MaxTicks is the tick count of 9999-12-31 23:59:59.9999999.
const MaxTicks = daysTo10000*TicksPerDay - 1

// ErrInvalidDate is returned by FromDateChecked for out of range components.
var ErrInvalidDate = errors.New("chrono: invalid date")

// FromDate returns midnight of the given date, or the null DateTime when
// year is outside 1..9999, month outside 1..12 or day outside the month.
func FromDate(year, month, day int) DateTime {
	ticks, _ := dateToTicks(year, month, day)
	return DateTime(ticks)
}

// FromDateChecked is FromDate with an explicit failure instead of the null
// sentinel.
func FromDateChecked(year, month, day int) (DateTime, error) {
	ticks, ok := dateToTicks(year, month, day)
	if !ok {
		return 0, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return DateTime(ticks), nil
}

// FromTime returns a DateTime holding only a time of day. Components are
// not range checked: FromTime(25, 0, 0, 0) lands on the second day.
// A negative total yields the null DateTime.
func FromTime(hour, minute, second int, millisecond float64) DateTime {
	return fromSpan(NewTimeSpan(0, hour, minute, second, millisecond))
}

// FromDateAndTime combines FromDate and FromTime. The result is null
// whenever the date part is invalid.
func FromDateAndTime(year, month, day, hour, minute, second int, millisecond float64) DateTime {
	date := FromDate(year, month, day)
	if date.IsNull() {
		return 0
	}
	return date.Add(NewTimeSpan(0, hour, minute, second, millisecond))
}

// fromSpan interprets a non-negative span as ticks since the epoch.
func fromSpan(ts TimeSpan) DateTime {
	if ts < 0 || uint64(ts) > MaxTicks {
		return 0
	}
	return DateTime(ts)
}

// Ticks returns the raw tick count.
func (dt DateTime) Ticks() uint64 { return uint64(dt) }

// Date returns the calendar date of dt.
func (dt DateTime) Date() (year, month, day int) {
	year, month, day, _ = civil(dt.fullDays())
	return year, month, day
}

func (dt DateTime) Year() int {
	year, _, _, _ := civil(dt.fullDays())
	return year
}

func (dt DateTime) Month() int {
	_, month, _, _ := civil(dt.fullDays())
	return month
}

func (dt DateTime) Day() int {
	_, _, day, _ := civil(dt.fullDays())
	return day
}

// DayOfYear returns the day within the year, 1..366.
func (dt DateTime) DayOfYear() int {
	_, _, _, yearDay := civil(dt.fullDays())
	return yearDay
}

// DayOfWeek returns the weekday. 0001-01-01 was a Monday.
func (dt DateTime) DayOfWeek() DayOfWeek {
	return DayOfWeek(dt.fullDays() % 7)
}

func (dt DateTime) Hour() int        { return int(uint64(dt) / TicksPerHour % 24) }
func (dt DateTime) Minute() int      { return int(uint64(dt) / TicksPerMinute % 60) }
func (dt DateTime) Second() int      { return int(uint64(dt) / TicksPerSecond % 60) }
func (dt DateTime) Millisecond() int { return int(uint64(dt) / TicksPerMillisecond % 1000) }

// IsNull reports whether dt is the null DateTime.
func (dt DateTime) IsNull() bool { return dt == 0 }

// TimeOfDay returns the time elapsed since midnight.
func (dt DateTime) TimeOfDay() TimeSpan { return TimeSpan(uint64(dt) % TicksPerDay) }

// IsLeapYear reports whether the year of dt is a leap year.
func (dt DateTime) IsLeapYear() bool { return IsLeapYear(dt.Year()) }

// IsSameDay reports whether dt and other fall on the same calendar day.
func (dt DateTime) IsSameDay(other DateTime) bool {
	return uint64(dt)/TicksPerDay == uint64(other)/TicksPerDay
}

func (dt DateTime) fullDays() int { return int(uint64(dt) / TicksPerDay) }

// Add returns dt shifted by ts. Results before the epoch or after MaxTicks
// collapse to the null DateTime.
func (dt DateTime) Add(ts TimeSpan) DateTime {
	t := uint64(dt)
	if t > MaxTicks {
		return 0
	}
	if ts >= 0 {
		if uint64(ts) > MaxTicks-t {
			return 0
		}
		return DateTime(t + uint64(ts))
	}
	back := uint64(-ts)
	if back > t {
		return 0
	}
	return DateTime(t - back)
}

// Subtract returns dt shifted back by ts.
func (dt DateTime) Subtract(ts TimeSpan) DateTime {
	if ts == NegativeInfinity() {
		return 0
	}
	return dt.Add(-ts)
}

// Sub returns the duration dt-other.
func (dt DateTime) Sub(other DateTime) TimeSpan {
	return TimeSpan(int64(dt) - int64(other))
}

// Compare returns -1, 0 or +1 depending on whether dt is before, equal to
// or after other.
func (dt DateTime) Compare(other DateTime) int {
	switch {
	case dt < other:
		return -1
	case dt > other:
		return 1
	}
	return 0
}

func (dt DateTime) Before(other DateTime) bool { return dt < other }
func (dt DateTime) After(other DateTime) bool  { return dt > other }
func (dt DateTime) Equal(other DateTime) bool  { return dt == other }
