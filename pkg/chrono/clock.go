package chrono

import (
	"sync"
	"time"
)

// unixEpochSeconds is the number of seconds from 0001-01-01 to 1970-01-01.
const unixEpochSeconds = daysTo1970 * 24 * 60 * 60

// Clock supplies wall-clock readings.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the operating system clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns At.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// ManualClock is a Clock that only moves when told to. It is safe for
// concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start DateTime) *ManualClock {
	return &ManualClock{now: start.Time()}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by ts.
func (c *ManualClock) Advance(ts TimeSpan) {
	c.mu.Lock()
	c.now = c.now.Add(time.Duration(ts) * 100)
	c.mu.Unlock()
}

// Set moves the clock to dt.
func (c *ManualClock) Set(dt DateTime) {
	c.mu.Lock()
	c.now = dt.Time()
	c.mu.Unlock()
}

// Now reads the system clock once.
func Now() DateTime { return NowFrom(SystemClock{}) }

// NowFrom reads c once.
func NowFrom(c Clock) DateTime { return FromGoTime(c.Now()) }

// FromGoTime converts t to a DateTime, truncating to whole ticks. Instants
// outside the representable range yield the null DateTime.
func FromGoTime(t time.Time) DateTime {
	sec := t.Unix() + unixEpochSeconds
	if sec < 0 || sec > MaxTicks/TicksPerSecond {
		return 0
	}
	return DateTime(uint64(sec)*TicksPerSecond + uint64(t.Nanosecond()/100))
}

// FromUnix converts a Unix timestamp in seconds.
func FromUnix(seconds int64) DateTime { return FromGoTime(time.Unix(seconds, 0)) }

// Time converts dt to a UTC time.Time.
func (dt DateTime) Time() time.Time {
	t := uint64(dt)
	sec := int64(t/TicksPerSecond) - unixEpochSeconds
	nsec := int64(t%TicksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

// Duration converts ts to a time.Duration, saturating at its bounds.
func (ts TimeSpan) Duration() time.Duration {
	const maxTicks = int64(1<<63-1) / 100
	switch {
	case int64(ts) > maxTicks:
		return time.Duration(1<<63 - 1)
	case int64(ts) < -maxTicks:
		return time.Duration(-1 << 63)
	}
	return time.Duration(ts) * 100
}

// FromDuration converts a time.Duration, truncating to whole ticks.
func FromDuration(d time.Duration) TimeSpan { return TimeSpan(d / 100) }
