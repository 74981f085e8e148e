package chrono

import (
	"strings"

	"chronoutil/pkg/conversion"
)

// maxFractionDigits is the number of decimal places resolvable in ticks.
const maxFractionDigits = 7

// ParseDateTime parses text of the form
//
//	[Weekday[,] ]YYYY-MM-DD[(T| )HH:MM[:SS[.fffffff]]][Z]
//
// The date separator may also be '/' or '.', but must be used consistently;
// the fraction separator may be ',' as well. A leading weekday name, full or
// abbreviated, must match the date. Malformed text or out of range fields
// yield a *conversion.Error.
func ParseDateTime(text string) (DateTime, error) {
	if text == "" {
		return 0, conversion.NewError(text, "empty date")
	}
	s := text

	wantDay := DayOfWeek(-1)
	if isLetter(s[0]) {
		end := 0
		for end < len(s) && isLetter(s[end]) {
			end++
		}
		d, ok := lookupDayOfWeek(s[:end])
		if !ok {
			return 0, conversion.NewError(text, "unknown weekday %q", s[:end])
		}
		wantDay = d
		s = strings.TrimPrefix(s[end:], ",")
		if !strings.HasPrefix(s, " ") {
			return 0, conversion.NewError(text, "expected space after weekday")
		}
		s = strings.TrimLeft(s, " ")
	}

	year, s, ok := takeDigits(s, 4, 4)
	if !ok {
		return 0, conversion.NewError(text, "expected four digit year")
	}
	if s == "" || (s[0] != '-' && s[0] != '/' && s[0] != '.') {
		return 0, conversion.NewError(text, "expected date separator after year")
	}
	sep := s[0]
	month, s, ok := takeDigits(s[1:], 1, 2)
	if !ok {
		return 0, conversion.NewError(text, "expected month")
	}
	if s == "" || s[0] != sep {
		return 0, conversion.NewError(text, "expected %q after month", sep)
	}
	day, s, ok := takeDigits(s[1:], 1, 2)
	if !ok {
		return 0, conversion.NewError(text, "expected day")
	}

	var hour, minute, second, fraction int
	if s != "" && (s[0] == 'T' || s[0] == ' ') {
		if hour, s, ok = takeDigits(s[1:], 1, 2); !ok {
			return 0, conversion.NewError(text, "expected hour")
		}
		if s == "" || s[0] != ':' {
			return 0, conversion.NewError(text, "expected ':' after hour")
		}
		if minute, s, ok = takeDigits(s[1:], 1, 2); !ok {
			return 0, conversion.NewError(text, "expected minute")
		}
		if s != "" && s[0] == ':' {
			if second, s, ok = takeDigits(s[1:], 1, 2); !ok {
				return 0, conversion.NewError(text, "expected second")
			}
			if s != "" && (s[0] == '.' || s[0] == ',') {
				if fraction, s, ok = takeFraction(s[1:]); !ok {
					return 0, conversion.NewError(text, "expected one to seven fraction digits")
				}
			}
		}
	}
	if s == "Z" {
		s = ""
	}
	if s != "" {
		return 0, conversion.NewError(text, "unexpected %q", s)
	}

	date, err := FromDateChecked(year, month, day)
	if err != nil {
		return 0, conversion.NewError(text, "date out of range")
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, conversion.NewError(text, "time out of range")
	}
	dt := date.Add(NewTimeSpan(0, hour, minute, second, 0) + TimeSpan(fraction))
	if wantDay >= 0 && dt.DayOfWeek() != wantDay {
		return 0, conversion.NewError(text, "weekday %s does not match date", wantDay)
	}
	return dt, nil
}

// ParseTimeSpan parses text of the form "[-][d.]h:mm:ss[.fffffff]", the
// layout written by TimeSpanNormal. Hours must be below 24 when a day
// segment is present; minutes and seconds must be below 60.
func ParseTimeSpan(text string) (TimeSpan, error) {
	s := text
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return 0, conversion.NewError(text, "expected hh:mm:ss")
	}
	days, hasDays := 0, false
	if dot := strings.IndexByte(s[:colon], '.'); dot >= 0 {
		var ok bool
		if days, ok = conversion.ParseDigits(s[:dot]); !ok || days > maxSpanDays {
			return 0, conversion.NewError(text, "invalid day segment")
		}
		hasDays = true
		s = s[dot+1:]
	}

	parts := conversion.SplitString(s, ":", conversion.Keep, 3)
	if len(parts) != 3 {
		return 0, conversion.NewError(text, "expected hh:mm:ss")
	}
	hours, ok := conversion.ParseDigits(parts[0])
	if !ok || hours > maxSpanDays*24 || (hasDays && hours > 23) {
		return 0, conversion.NewError(text, "invalid hours")
	}
	minutes, rest, ok := takeDigits(parts[1], 1, 2)
	if !ok || rest != "" || minutes > 59 {
		return 0, conversion.NewError(text, "invalid minutes")
	}
	seconds, rest, ok := takeDigits(parts[2], 1, 2)
	if !ok || seconds > 59 {
		return 0, conversion.NewError(text, "invalid seconds")
	}
	fraction := 0
	if rest != "" {
		if rest[0] != '.' {
			return 0, conversion.NewError(text, "unexpected %q", rest)
		}
		if fraction, rest, ok = takeFraction(rest[1:]); !ok || rest != "" {
			return 0, conversion.NewError(text, "expected one to seven fraction digits")
		}
	}

	ts := TimeSpan(days)*Day + TimeSpan(hours)*Hour + TimeSpan(minutes)*Minute +
		TimeSpan(seconds)*Second + TimeSpan(fraction)
	if negative {
		ts = -ts
	}
	return ts, nil
}

// maxSpanDays keeps parsed day counts clear of int64 overflow.
const maxSpanDays = 10675198

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// takeDigits consumes a leading run of min..max digits.
func takeDigits(s string, min, max int) (int, string, bool) {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	if n < min || n > max {
		return 0, s, false
	}
	v, _ := conversion.ParseDigits(s[:n])
	return v, s[n:], true
}

// takeFraction consumes decimal fraction digits and returns them as ticks.
func takeFraction(s string) (int, string, bool) {
	v, rest, ok := takeDigits(s, 1, maxFractionDigits)
	if !ok {
		return 0, s, false
	}
	for n := len(s) - len(rest); n < maxFractionDigits; n++ {
		v *= 10
	}
	return v, rest, true
}
