// Package conversion provides the string and number helpers shared by the
// chrono types and the command line tools: joining and splitting, integer
// rendering with a fixed width, base64 and human readable sizes.
package conversion

import (
	"errors"
	"fmt"
)

// ErrConversion is wrapped by every *Error returned from this module.
var ErrConversion = errors.New("unable to convert")

// Error describes input that could not be converted.
type Error struct {
	Input  string
	Reason string
}

// NewError returns an *Error for input with a formatted reason.
func NewError(input, format string, args ...any) *Error {
	return &Error{Input: input, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Input == "" {
		return "conversion: " + e.Reason
	}
	return fmt.Sprintf("conversion: %q: %s", e.Input, e.Reason)
}

// Unwrap lets errors.Is(err, ErrConversion) match.
func (e *Error) Unwrap() error { return ErrConversion }
