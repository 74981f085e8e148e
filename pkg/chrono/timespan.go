// Package chrono implements DateTime and TimeSpan, two value types backed by
// a single 64-bit count of 100 nanosecond ticks. DateTime counts ticks since
// 0001-01-01 00:00:00 in the proleptic Gregorian calendar; TimeSpan is a
// signed tick difference. Neither type knows about time zones.
package chrono

import "math"

// Ticks per unit. One tick is 100 nanoseconds.
const (
	TicksPerMillisecond = 10000
	TicksPerSecond      = 1000 * TicksPerMillisecond
	TicksPerMinute      = 60 * TicksPerSecond
	TicksPerHour        = 60 * TicksPerMinute
	TicksPerDay         = 24 * TicksPerHour
)

// TimeSpan is a signed duration measured in ticks.
type TimeSpan int64

// Common durations.
const (
	Tick        TimeSpan = 1
	Millisecond TimeSpan = TicksPerMillisecond
	Second      TimeSpan = TicksPerSecond
	Minute      TimeSpan = TicksPerMinute
	Hour        TimeSpan = TicksPerHour
	Day         TimeSpan = TicksPerDay
)

// NewTimeSpan sums the given components. Fractions of a millisecond below
// one tick are truncated.
func NewTimeSpan(days, hours, minutes, seconds int, milliseconds float64) TimeSpan {
	return TimeSpan(int64(days)*TicksPerDay +
		int64(hours)*TicksPerHour +
		int64(minutes)*TicksPerMinute +
		int64(seconds)*TicksPerSecond +
		int64(milliseconds*TicksPerMillisecond))
}

// FromMilliseconds returns a TimeSpan of ms milliseconds.
func FromMilliseconds(ms float64) TimeSpan { return TimeSpan(ms * TicksPerMillisecond) }

// FromSeconds returns a TimeSpan of s seconds.
func FromSeconds(s float64) TimeSpan { return TimeSpan(s * TicksPerSecond) }

// FromMinutes returns a TimeSpan of m minutes.
func FromMinutes(m float64) TimeSpan { return TimeSpan(m * TicksPerMinute) }

// FromHours returns a TimeSpan of h hours.
func FromHours(h float64) TimeSpan { return TimeSpan(h * TicksPerHour) }

// FromDays returns a TimeSpan of d days.
func FromDays(d float64) TimeSpan { return TimeSpan(d * TicksPerDay) }

// Infinity returns the largest representable TimeSpan.
func Infinity() TimeSpan { return math.MaxInt64 }

// NegativeInfinity returns the smallest representable TimeSpan.
func NegativeInfinity() TimeSpan { return math.MinInt64 }

// Ticks returns the raw tick count.
func (ts TimeSpan) Ticks() int64 { return int64(ts) }

// Days returns the whole days of ts.
func (ts TimeSpan) Days() int { return int(ts / Day) }

// Hours returns the hours component (-23..23).
func (ts TimeSpan) Hours() int { return int(ts / Hour % 24) }

// Minutes returns the minutes component (-59..59).
func (ts TimeSpan) Minutes() int { return int(ts / Minute % 60) }

// Seconds returns the seconds component (-59..59).
func (ts TimeSpan) Seconds() int { return int(ts / Second % 60) }

// Milliseconds returns the milliseconds component (-999..999).
func (ts TimeSpan) Milliseconds() int { return int(ts / Millisecond % 1000) }

// TotalDays returns ts expressed in days, including fractions.
func (ts TimeSpan) TotalDays() float64 { return float64(ts) / TicksPerDay }

// TotalHours returns ts expressed in hours, including fractions.
func (ts TimeSpan) TotalHours() float64 { return float64(ts) / TicksPerHour }

// TotalMinutes returns ts expressed in minutes, including fractions.
func (ts TimeSpan) TotalMinutes() float64 { return float64(ts) / TicksPerMinute }

// TotalSeconds returns ts expressed in seconds, including fractions.
func (ts TimeSpan) TotalSeconds() float64 { return float64(ts) / TicksPerSecond }

// TotalMilliseconds returns ts expressed in milliseconds, including fractions.
func (ts TimeSpan) TotalMilliseconds() float64 { return float64(ts) / TicksPerMillisecond }

func (ts TimeSpan) IsNull() bool             { return ts == 0 }
func (ts TimeSpan) IsNegative() bool         { return ts < 0 }
func (ts TimeSpan) IsInfinity() bool         { return ts == math.MaxInt64 }
func (ts TimeSpan) IsNegativeInfinity() bool { return ts == math.MinInt64 }

func (ts TimeSpan) Add(other TimeSpan) TimeSpan { return ts + other }
func (ts TimeSpan) Sub(other TimeSpan) TimeSpan { return ts - other }
func (ts TimeSpan) Neg() TimeSpan               { return -ts }
func (ts TimeSpan) Mul(n int64) TimeSpan        { return ts * TimeSpan(n) }

// Div divides ts by n, truncating toward zero. It panics if n is zero.
func (ts TimeSpan) Div(n int64) TimeSpan { return ts / TimeSpan(n) }

// Compare returns -1, 0 or +1 depending on whether ts is shorter, equal to
// or longer than other.
func (ts TimeSpan) Compare(other TimeSpan) int {
	switch {
	case ts < other:
		return -1
	case ts > other:
		return 1
	}
	return 0
}
