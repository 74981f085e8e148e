package chrono

import (
	"database/sql/driver"
	"fmt"

	"chronoutil/pkg/conversion"
)

// appendTicks writes frac, the sub-second ticks, as a seven digit fraction.
func appendTicks(dst []byte, frac uint64) []byte {
	dst = append(dst, '.')
	return conversion.AppendPaddedInt(dst, int(frac), maxFractionDigits)
}

// MarshalText renders dt in the DateAndTime format; null renders as "".
// Instants with sub-millisecond ticks get a seven digit fraction.
func (dt DateTime) MarshalText() ([]byte, error) {
	if dt.IsNull() {
		return []byte{}, nil
	}
	if frac := dt.Ticks() % TicksPerSecond; frac%TicksPerMillisecond != 0 {
		return appendTicks(dt.AppendFormat(nil, DateAndTime, true), frac), nil
	}
	return dt.AppendFormat(nil, DateAndTime, false), nil
}

// UnmarshalText parses text with ParseDateTime; "" yields null.
func (dt *DateTime) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*dt = 0
		return nil
	}
	v, err := ParseDateTime(string(text))
	if err != nil {
		return err
	}
	*dt = v
	return nil
}

// Value stores dt as an INTEGER tick count.
func (dt DateTime) Value() (driver.Value, error) {
	return int64(dt), nil
}

// Scan reads an INTEGER tick count; NULL yields the null DateTime.
func (dt *DateTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*dt = 0
	case int64:
		if v < 0 || uint64(v) > MaxTicks {
			return fmt.Errorf("chrono: tick count %d out of range", v)
		}
		*dt = DateTime(v)
	default:
		return fmt.Errorf("chrono: cannot scan %T into DateTime", src)
	}
	return nil
}

// MarshalText renders ts in the TimeSpanNormal format, with a seven digit
// fraction when ts has sub-millisecond ticks.
func (ts TimeSpan) MarshalText() ([]byte, error) {
	abs := uint64(ts)
	if ts < 0 {
		abs = uint64(-ts)
	}
	if frac := abs % TicksPerSecond; frac%TicksPerMillisecond != 0 {
		return appendTicks(ts.AppendFormat(nil, TimeSpanNormal, true), frac), nil
	}
	return ts.AppendFormat(nil, TimeSpanNormal, false), nil
}

// UnmarshalText parses text with ParseTimeSpan.
func (ts *TimeSpan) UnmarshalText(text []byte) error {
	v, err := ParseTimeSpan(string(text))
	if err != nil {
		return err
	}
	*ts = v
	return nil
}
