package chrono

import (
	"strconv"
	"strings"
	"time"

	"chronoutil/pkg/conversion"
)

// DayOfWeek enumerates the weekdays starting with Monday.
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var (
	dayNames   = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	dayAbbrevs = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

// Name returns the English weekday name, abbreviated to three letters when
// abbrev is set. Unknown values yield "".
func (d DayOfWeek) Name(abbrev bool) string {
	if d < Monday || d > Sunday {
		return ""
	}
	if abbrev {
		return dayAbbrevs[d]
	}
	return dayNames[d]
}

func (d DayOfWeek) String() string { return d.Name(false) }

// Weekday converts d to the time package numbering, where Sunday is 0.
func (d DayOfWeek) Weekday() time.Weekday { return time.Weekday((int(d) + 1) % 7) }

// ParseDayOfWeek accepts a full or three letter English weekday name in
// any letter case.
func ParseDayOfWeek(name string) (DayOfWeek, error) {
	d, ok := lookupDayOfWeek(name)
	if !ok {
		return 0, conversion.NewError(name, "unknown weekday")
	}
	return d, nil
}

func lookupDayOfWeek(name string) (DayOfWeek, bool) {
	for i := range dayNames {
		if strings.EqualFold(name, dayNames[i]) || strings.EqualFold(name, dayAbbrevs[i]) {
			return DayOfWeek(i), true
		}
	}
	return 0, false
}

// DateTimeOutputFormat selects the fields rendered by DateTime.Format.
type DateTimeOutputFormat int

const (
	DateAndTime DateTimeOutputFormat = iota
	DateOnly
	TimeOnly
	DateTimeAndWeekday
	DateTimeAndShortWeekday
)

var outputFormatNames = [...]string{
	DateAndTime:             "date_and_time",
	DateOnly:                "date_only",
	TimeOnly:                "time_only",
	DateTimeAndWeekday:      "date_time_and_weekday",
	DateTimeAndShortWeekday: "date_time_and_short_weekday",
}

func (f DateTimeOutputFormat) String() string {
	if f < 0 || int(f) >= len(outputFormatNames) {
		return "unknown"
	}
	return outputFormatNames[f]
}

// ParseOutputFormat maps a name such as "date_only" to its format.
// The empty string selects DateAndTime.
func ParseOutputFormat(name string) (DateTimeOutputFormat, error) {
	if name == "" {
		return DateAndTime, nil
	}
	for i, n := range outputFormatNames {
		if strings.EqualFold(name, n) {
			return DateTimeOutputFormat(i), nil
		}
	}
	return 0, conversion.NewError(name, "unknown output format")
}

// Format renders dt. The layout is "YYYY-MM-DD HH:MM:SS.fff"; weekday
// formats prefix the English day name. Milliseconds are only written when
// non-zero and noMilliseconds is false.
func (dt DateTime) Format(format DateTimeOutputFormat, noMilliseconds bool) string {
	var buf [48]byte
	return string(dt.AppendFormat(buf[:0], format, noMilliseconds))
}

// AppendFormat is like Format but appends to dst.
func (dt DateTime) AppendFormat(dst []byte, format DateTimeOutputFormat, noMilliseconds bool) []byte {
	if format == DateTimeAndWeekday || format == DateTimeAndShortWeekday {
		dst = append(dst, dt.DayOfWeek().Name(format == DateTimeAndShortWeekday)...)
		dst = append(dst, ' ')
	}
	if format != TimeOnly {
		year, month, day := dt.Date()
		dst = conversion.AppendPaddedInt(dst, year, 4)
		dst = append(dst, '-')
		dst = conversion.AppendPaddedInt(dst, month, 2)
		dst = append(dst, '-')
		dst = conversion.AppendPaddedInt(dst, day, 2)
		if format == DateOnly {
			return dst
		}
		dst = append(dst, ' ')
	}
	dst = conversion.AppendPaddedInt(dst, dt.Hour(), 2)
	dst = append(dst, ':')
	dst = conversion.AppendPaddedInt(dst, dt.Minute(), 2)
	dst = append(dst, ':')
	dst = conversion.AppendPaddedInt(dst, dt.Second(), 2)
	if ms := dt.Millisecond(); ms > 0 && !noMilliseconds {
		dst = append(dst, '.')
		dst = conversion.AppendPaddedInt(dst, ms, 3)
	}
	return dst
}

// String renders dt in the DateAndTime format.
func (dt DateTime) String() string { return dt.Format(DateAndTime, false) }

// TimeSpanOutputFormat selects the layout used by TimeSpan.Format.
type TimeSpanOutputFormat int

const (
	// TimeSpanNormal renders "[-][d.]hh:mm:ss[.fff]".
	TimeSpanNormal TimeSpanOutputFormat = iota
	// TimeSpanWithMeasures renders "1 d 2 h 3 min 4 s 5 ms".
	TimeSpanWithMeasures
)

// Format renders ts. The day segment is omitted when zero, the millisecond
// segment when zero or when noMilliseconds is set.
func (ts TimeSpan) Format(format TimeSpanOutputFormat, noMilliseconds bool) string {
	var buf [40]byte
	return string(ts.AppendFormat(buf[:0], format, noMilliseconds))
}

// AppendFormat is like Format but appends to dst.
func (ts TimeSpan) AppendFormat(dst []byte, format TimeSpanOutputFormat, noMilliseconds bool) []byte {
	abs := uint64(ts)
	if ts < 0 {
		dst = append(dst, '-')
		abs = uint64(-ts)
	}
	if format == TimeSpanWithMeasures {
		return appendMeasures(dst, abs, noMilliseconds)
	}

	if days := abs / TicksPerDay; days > 0 {
		dst = strconv.AppendUint(dst, days, 10)
		dst = append(dst, '.')
	}
	dst = conversion.AppendPaddedInt(dst, int(abs/TicksPerHour%24), 2)
	dst = append(dst, ':')
	dst = conversion.AppendPaddedInt(dst, int(abs/TicksPerMinute%60), 2)
	dst = append(dst, ':')
	dst = conversion.AppendPaddedInt(dst, int(abs/TicksPerSecond%60), 2)
	if ms := int(abs / TicksPerMillisecond % 1000); ms > 0 && !noMilliseconds {
		dst = append(dst, '.')
		dst = conversion.AppendPaddedInt(dst, ms, 3)
	}
	return dst
}

func appendMeasures(dst []byte, abs uint64, noMilliseconds bool) []byte {
	if abs == 0 {
		return append(dst, "0 s"...)
	}
	if abs < TicksPerMillisecond {
		dst = append(dst, conversion.FormatSignificant(float64(abs)/10, 2)...)
		return append(dst, " µs"...)
	}

	measures := []struct {
		value uint64
		unit  string
	}{
		{abs / TicksPerDay, " d"},
		{abs / TicksPerHour % 24, " h"},
		{abs / TicksPerMinute % 60, " min"},
		{abs / TicksPerSecond % 60, " s"},
		{abs / TicksPerMillisecond % 1000, " ms"},
	}
	if noMilliseconds {
		measures = measures[:4]
	}
	parts := make([]string, 0, len(measures))
	for _, m := range measures {
		if m.value > 0 {
			parts = append(parts, strconv.FormatUint(m.value, 10)+m.unit)
		}
	}
	if len(parts) == 0 {
		return append(dst, "0 s"...)
	}
	return append(dst, conversion.JoinStrings(parts, conversion.JoinOptions{Delimiter: " "})...)
}

// String renders ts in the TimeSpanNormal format.
func (ts TimeSpan) String() string { return ts.Format(TimeSpanNormal, false) }
