package api

import (
	"errors"
	"net/http"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"chronoutil/pkg/chrono"
)

// TOTPHeader carries the one-time code for guarded writes.
const TOTPHeader = "X-TOTP"

var (
	ErrTOTPMissing = errors.New("totp code required")
	ErrTOTPInvalid = errors.New("totp code invalid")
)

// totpOpts are the RFC 6238 defaults used by authenticator apps.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TOTPGuard validates time-based one-time codes against a shared base32
// secret, using its own clock so tests can pin the time step.
type TOTPGuard struct {
	secret string
	clock  chrono.Clock
}

// NewTOTPGuard creates a guard for secret.
func NewTOTPGuard(secret string, clock chrono.Clock) *TOTPGuard {
	return &TOTPGuard{secret: secret, clock: clock}
}

// Code generates the current code. Used by clients and tests.
func (g *TOTPGuard) Code() (string, error) {
	return totp.GenerateCodeCustom(g.secret, g.clock.Now().UTC(), totpOpts)
}

// Check validates the code carried by r.
func (g *TOTPGuard) Check(r *http.Request) error {
	code := r.Header.Get(TOTPHeader)
	if code == "" {
		return ErrTOTPMissing
	}
	ok, err := totp.ValidateCustom(code, g.secret, g.clock.Now().UTC(), totpOpts)
	if err != nil || !ok {
		return ErrTOTPInvalid
	}
	return nil
}
