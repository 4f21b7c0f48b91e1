package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so callers can map them to user-facing responses without leaking store details.
var (
	ErrArgumentMissing = errors.New("argument missing")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrInvalid         = errors.New("invalid")
	ErrTooSoon         = errors.New("too soon")
	ErrConflict        = errors.New("conflict")
	ErrStoreFailure    = errors.New("store failure")
	ErrUnauthorized    = errors.New("unauthorized")
)

// TooSoonError is returned by a resend that arrives inside the cooldown window.
// WaitSeconds is the remaining wait, rounded up to a whole second.
type TooSoonError struct {
	WaitSeconds int
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("resend not allowed yet, retry in %ds", e.WaitSeconds)
}

func (e *TooSoonError) Unwrap() error { return ErrTooSoon }

// WaitSeconds extracts the retry hint from err, if any.
func WaitSeconds(err error) (int, bool) {
	var ts *TooSoonError
	if errors.As(err, &ts) {
		return ts.WaitSeconds, true
	}
	return 0, false
}
