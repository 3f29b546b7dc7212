// Package apperrors defines the fixed error taxonomy shared by the
// pipelines and the HTTP layer. Handlers map these to status codes; full
// detail stays in server-side logs.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is user-correctable and never retried server-side.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized means no valid caller identity was presented.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited means the identity exhausted its sliding window.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamUnavailable means a required external dependency or
	// credential is down or missing.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrTimeout means the joint aggregation deadline elapsed.
	ErrTimeout = errors.New("request timed out")

	// ErrInternal covers everything else; the caller sees a generic message.
	ErrInternal = errors.New("internal error")
)

// RateLimitError carries the retry hint for a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
