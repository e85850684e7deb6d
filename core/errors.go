package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned for malformed addresses or signature shapes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimitExceeded is returned when the rate limiter rejects a call.
	// Retryable; the transport layer carries a retry-after hint alongside it.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownNonce is returned when no nonce exists for the presented value.
	ErrUnknownNonce = errors.New("unknown nonce")

	// ErrNonceAlreadyUsed is returned when a nonce has already been consumed.
	ErrNonceAlreadyUsed = errors.New("nonce already used")

	// ErrNonceExpired is returned when a nonce is past its expiry.
	ErrNonceExpired = errors.New("nonce expired")

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnauthenticated is returned when no valid session is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned for a valid session with insufficient privilege.
	ErrForbidden = errors.New("forbidden")

	// ErrUserBanned is returned when the resolved user is banned.
	ErrUserBanned = errors.New("user banned")

	// ErrStoreUnavailable is returned on durable store failure. Callers fail
	// closed: never default to authenticated.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// RateLimitError carries the backoff hint alongside ErrRateLimitExceeded.
// errors.Is(err, ErrRateLimitExceeded) matches it.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// AuthFailure reports whether err is one of the login failure modes that
// must be recorded as a failed AuthAttempt and surfaced to clients as a
// generic authentication failure.
func AuthFailure(err error) bool {
	return errors.Is(err, ErrUnknownNonce) ||
		errors.Is(err, ErrNonceAlreadyUsed) ||
		errors.Is(err, ErrNonceExpired) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrUserBanned)
}
