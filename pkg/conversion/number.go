package conversion

import (
	"strconv"
	"strings"
	"unsafe"
)

// Integer is the set of integer types accepted by the generic helpers.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func isSigned[T Integer]() bool {
	var z T
	return z-1 < z
}

// NumberToString renders n in the given base (2..36).
func NumberToString[T Integer](n T, base int) string {
	if isSigned[T]() {
		return strconv.FormatInt(int64(n), base)
	}
	return strconv.FormatUint(uint64(n), base)
}

// FloatToString renders f in its shortest exact decimal form.
func FloatToString(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// StringToNumber parses s (surrounding whitespace ignored) as an integer of
// type T in the given base. Values that do not fit T are rejected.
func StringToNumber[T Integer](s string, base int) (T, error) {
	trimmed := strings.TrimSpace(s)
	if isSigned[T]() {
		v, err := strconv.ParseInt(trimmed, base, 64)
		if err != nil || int64(T(v)) != v {
			return 0, NewError(s, "not a valid number")
		}
		return T(v), nil
	}
	v, err := strconv.ParseUint(trimmed, base, 64)
	if err != nil || uint64(T(v)) != v {
		return 0, NewError(s, "not a valid number")
	}
	return T(v), nil
}

// StringToFloat parses s (surrounding whitespace ignored) as a float64.
func StringToFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, NewError(s, "not a valid number")
	}
	return v, nil
}

// Itoa is a minimal int-to-string converter for hot-path usage.
func Itoa(n int) string {
	var buf [20]byte
	return string(appendInt(buf[:0], n, 0))
}

// AppendPaddedInt appends n to dst, zero padded to at least width digits.
func AppendPaddedInt(dst []byte, n, width int) []byte {
	return appendInt(dst, n, width)
}

func appendInt(dst []byte, n, width int) []byte {
	u := uint64(n)
	if n < 0 {
		dst = append(dst, '-')
		u = -u
	}
	var buf [20]byte
	i := len(buf)
	for u >= 10 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	i--
	buf[i] = byte('0' + u)
	for pad := width - (len(buf) - i); pad > 0; pad-- {
		dst = append(dst, '0')
	}
	return append(dst, buf[i:]...)
}

// ParseDigits parses a non-empty run of ASCII digits of at most 18 characters.
func ParseDigits(s string) (int, bool) {
	if s == "" || len(s) > 18 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// InterpretIntegerAsString reads the big-endian bytes of v as a string,
// skipping the first startOffset bytes. For example 0x54495432 is "TIT2".
func InterpretIntegerAsString[T Integer](v T, startOffset int) string {
	size := int(unsafe.Sizeof(v))
	buf := make([]byte, size)
	u := uint64(v)
	for i := size - 1; i >= 0; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
	if startOffset < 0 {
		startOffset = 0
	}
	if startOffset > size {
		startOffset = size
	}
	return string(buf[startOffset:])
}
