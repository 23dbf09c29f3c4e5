package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is returned when a URL matches no known
	// platform domain set.
	ErrUnsupportedPlatform = errors.New("unsupported URL format")

	// ErrMissingTrackData is returned when the source adapter produced no
	// usable track identity.
	ErrMissingTrackData = errors.New("missing required track information")

	// ErrTooManyRedirects is returned when a short link chain exceeds the
	// redirect hop limit.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// AuthError indicates a missing or rejected platform credential. It is a
// configuration problem for that adapter, not a transient failure.
type AuthError struct {
	Platform Platform
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Reason)
}

// TransientError indicates a network failure, timeout, 5xx response or
// malformed body from a platform API. Non-source platform lookups swallow
// it as "no link found"; for the source platform it aborts the conversion.
type TransientError struct {
	Platform Platform
	Status   int // HTTP status if applicable, 0 otherwise.
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s API error: status %d: %v", e.Platform, e.Status, e.Err)
	}
	return fmt.Sprintf("%s API error: %v", e.Platform, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ConflictError indicates a write that would violate one of the store's
// uniqueness constraints. The write is rejected without partial mutation.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %v", e.Constraint, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ConversionError wraps any failure of the conversion pipeline into a
// single caller-visible error carrying the original cause.
type ConversionError struct {
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert link: %v", e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }
