package conversion

import (
	"math"
	"strconv"
	"strings"
)

const (
	kibi = 1024
	mebi = kibi * 1024
	gibi = mebi * 1024
	tebi = gibi * 1024
)

// FormatSignificant renders v rounded to digits significant digits in plain
// decimal notation, without trailing fraction zeros: 99.9 with two digits
// is "100", 1.50 is "1.5".
func FormatSignificant(v float64, digits int) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	prec := digits - 1 - int(math.Floor(math.Log10(math.Abs(v))))
	if prec < 0 {
		prec = 0
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func significant(v float64) string { return FormatSignificant(v, 3) }

// DataSizeToString renders a byte count with binary prefixes, e.g.
// "1.5 KiB". With includeBytes the exact count is appended for sizes above
// one KiB: "1.5 KiB (1536 byte)".
func DataSizeToString(size uint64, includeBytes bool) string {
	var res string
	switch {
	case size < kibi:
		res = strconv.FormatUint(size, 10) + " bytes"
	case size < mebi:
		res = significant(float64(size)/kibi) + " KiB"
	case size < gibi:
		res = significant(float64(size)/mebi) + " MiB"
	case size < tebi:
		res = significant(float64(size)/gibi) + " GiB"
	default:
		res = significant(float64(size)/tebi) + " TiB"
	}
	if includeBytes && size > kibi {
		res += " (" + strconv.FormatUint(size, 10) + " byte)"
	}
	return res
}

// BitrateToString renders a transfer rate given in kbit/s.
func BitrateToString(kbitPerSecond float64, useBytes bool) string {
	speed := kbitPerSecond
	switch {
	case math.IsNaN(speed):
		return "indeterminable"
	case useBytes:
		speed /= 8
		switch {
		case speed < 1:
			return significant(speed*1024) + " B/s"
		case speed < 1024:
			return significant(speed) + " KiB/s"
		case speed < 1024*1024:
			return significant(speed/1024) + " MiB/s"
		default:
			return significant(speed/(1024*1024)) + " GiB/s"
		}
	case speed < 1:
		return significant(speed*1000) + " bit/s"
	case speed < 1000:
		return significant(speed) + " kbit/s"
	case speed < 1000000:
		return significant(speed/1000) + " Mbit/s"
	default:
		return significant(speed/1000000) + " Gbit/s"
	}
}
