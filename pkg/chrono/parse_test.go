package chrono

import (
	"errors"
	"testing"

	"chronoutil/pkg/conversion"
)

func TestParseDateTime_Valid(t *testing.T) {
	cases := []struct {
		in   string
		want DateTime
	}{
		{"2024-03-05 07:08:09.010", FromDateAndTime(2024, 3, 5, 7, 8, 9, 10)},
		{"2024-03-05", FromDate(2024, 3, 5)},
		{"2024/03/05", FromDate(2024, 3, 5)},
		{"2024.3.5", FromDate(2024, 3, 5)},
		{"2024-3-5 7:08", FromDateAndTime(2024, 3, 5, 7, 8, 0, 0)},
		{"2024-03-05T07:08:09Z", FromDateAndTime(2024, 3, 5, 7, 8, 9, 0)},
		{"2024-03-05 07:08:09,5", FromDateAndTime(2024, 3, 5, 7, 8, 9, 500)},
		{"2024-03-05 07:08:09.0000001", FromDateAndTime(2024, 3, 5, 7, 8, 9, 0) + 1},
		{"Tue 2024-03-05 07:08:09", FromDateAndTime(2024, 3, 5, 7, 8, 9, 0)},
		{"tuesday, 2024-03-05", FromDate(2024, 3, 5)},
		{"9999-12-31 23:59:59.9999999", MaxTicks},
	}
	for _, c := range cases {
		got, err := ParseDateTime(c.in)
		if err != nil {
			t.Errorf("ParseDateTime(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseDateTime(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"24-03-05",
		"2024-03/05",
		"2024-02-30",
		"2024-13-01",
		"0000-01-01",
		"2024-03-05 24:00:00",
		"2024-03-05 07:60",
		"2024-03-05 07",
		"2024-03-05x",
		"2024-03-05 07:08:09.",
		"2024-03-05 07:08:09.12345678",
		"Monday, 2024-03-05",
		"Someday 2024-03-05",
		"Tue2024-03-05",
	}
	for _, in := range inputs {
		_, err := ParseDateTime(in)
		if err == nil {
			t.Errorf("ParseDateTime(%q): expected error", in)
			continue
		}
		var convErr *conversion.Error
		if !errors.As(err, &convErr) || !errors.Is(err, conversion.ErrConversion) {
			t.Errorf("ParseDateTime(%q): error %v is not a conversion error", in, err)
		}
	}
}

func TestParseDateTime_RoundTrip(t *testing.T) {
	values := []DateTime{
		FromDate(1, 1, 2),
		FromDate(1900, 2, 28),
		FromDateAndTime(2000, 2, 29, 12, 30, 45, 0),
		FromDateAndTime(2024, 3, 5, 7, 8, 9, 10),
		FromDateAndTime(9999, 12, 31, 23, 59, 59, 999),
	}
	formats := []DateTimeOutputFormat{DateAndTime, DateTimeAndWeekday, DateTimeAndShortWeekday}
	for _, dt := range values {
		for _, f := range formats {
			text := dt.Format(f, false)
			got, err := ParseDateTime(text)
			if err != nil {
				t.Errorf("ParseDateTime(%q): %v", text, err)
				continue
			}
			if got.Ticks() != dt.Ticks() {
				t.Errorf("round trip of %q = %d, want %d", text, got.Ticks(), dt.Ticks())
			}
		}
	}
}

func TestParseTimeSpan(t *testing.T) {
	cases := []struct {
		in   string
		want TimeSpan
	}{
		{"1.02:03:04.005", NewTimeSpan(1, 2, 3, 4, 5)},
		{"-1.02:03:04.005", -NewTimeSpan(1, 2, 3, 4, 5)},
		{"00:00:00", 0},
		{"-00:00:01", -Second},
		{"25:00:00", 25 * Hour},
		{"0:1:2", NewTimeSpan(0, 0, 1, 2, 0)},
		{"00:00:00.0000001", Tick},
	}
	for _, c := range cases {
		got, err := ParseTimeSpan(c.in)
		if err != nil {
			t.Errorf("ParseTimeSpan(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseTimeSpan(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseTimeSpan_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1:2", "1.25:00:00", "00:60:00", "00:00:60", "00:00:00.12345678", "00:00:00x", "x.00:00:00", "00:00:00:00"} {
		if _, err := ParseTimeSpan(in); !errors.Is(err, conversion.ErrConversion) {
			t.Errorf("ParseTimeSpan(%q) err = %v, want conversion error", in, err)
		}
	}
}

func TestParseTimeSpan_RoundTrip(t *testing.T) {
	for _, ts := range []TimeSpan{0, Second, -90 * Minute, NewTimeSpan(400, 23, 59, 59, 999)} {
		got, err := ParseTimeSpan(ts.String())
		if err != nil || got != ts {
			t.Errorf("round trip of %q = %d, %v", ts.String(), got, err)
		}
	}
}
