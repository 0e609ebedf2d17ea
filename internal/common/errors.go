// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values;
// services wrap them with fmt.Errorf("%w: ...") to attach an explanation.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Step progression errors.
	ErrInvalidTransition  = errors.New("invalid step transition")
	ErrMaxStepExceeded    = errors.New("max step exceeded")
	ErrPrerequisiteNotMet = errors.New("prerequisite not met")
	ErrStepLocked         = errors.New("step not reached yet")

	// Document and account lifecycle errors.
	ErrInvalidState = errors.New("invalid state")

	// Informational guards: the caller should treat these as a no-op
	// ("already satisfied") or as "the user must act first".
	ErrAlreadyInReview = errors.New("already in review")
	ErrNothingToSubmit = errors.New("nothing to submit")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)

// IsInformational reports whether err is one of the idempotency guards that
// a UI should surface as a notice rather than a failure.
func IsInformational(err error) bool {
	return errors.Is(err, ErrAlreadyInReview) || errors.Is(err, ErrNothingToSubmit)
}
