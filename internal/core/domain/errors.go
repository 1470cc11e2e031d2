package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrAddressQuotaExceeded = errors.New("maximum active sessions for this address reached")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrUpstreamFailure      = errors.New("upstream provider failure")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrInvalidInput         = errors.New("invalid input")
)

// IsInvalidSession reports whether err means the caller holds no usable
// session and must start a new one. Expired and unknown tokens are
// deliberately indistinguishable to callers.
func IsInvalidSession(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrAddressQuotaExceeded)
}

func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrUpstreamFailure)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrChallengeNotFound)
}

// RetryAfterError is a rate-limit rejection carrying how long the caller
// should wait for the window to roll over. It unwraps to ErrRateLimitExceeded
// so errors.Is keeps working for callers that don't need the duration.
type RetryAfterError struct {
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.After.Round(time.Second))
}

func (e *RetryAfterError) Unwrap() error {
	return ErrRateLimitExceeded
}
