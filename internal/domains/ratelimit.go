// Package domains implements the domain availability pipeline.
package domains

import (
	"context"
	"fmt"
	"time"

	"github.com/rankproof/rankproof/internal/apperrors"
	"github.com/rankproof/rankproof/internal/models"
)

// Window is the sliding admission window length.
const Window = 60 * time.Second

// DefaultCapacity is the number of requests admitted per identity per window.
const DefaultCapacity = 10

// WindowStore is the slice of the durable store the limiter needs.
type WindowStore interface {
	GetActiveWindow(ctx context.Context, identity string, since time.Time) (*models.RateLimitWindow, error)
	IncrementWindow(ctx context.Context, identity string, windowStart time.Time) error
	ResetWindow(ctx context.Context, identity string, windowStart time.Time) error
}

// Limiter is a sliding-window admission controller over shared storage
// rows. The check-then-act sequence is advisory: concurrent requests from
// the same identity can slightly over-admit under burst, which is
// acceptable here.
type Limiter struct {
	store    WindowStore
	capacity int
}

// NewLimiter creates a limiter backed by the durable store.
func NewLimiter(store WindowStore, capacity int) *Limiter {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Limiter{store: store, capacity: capacity}
}

// Admit records one request for the identity, or rejects it with a retry
// hint when the active window is full.
func (l *Limiter) Admit(ctx context.Context, identity string) error {
	now := time.Now().UTC()

	window, err := l.store.GetActiveWindow(ctx, identity, now.Add(-Window))
	if err != nil {
		return fmt.Errorf("%w: rate limit lookup failed: %v", apperrors.ErrInternal, err)
	}

	if window != nil {
		if window.RequestCount >= l.capacity {
			retryAfter := window.WindowStart.Add(Window).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
			return &apperrors.RateLimitError{RetryAfter: retryAfter}
		}
		if err := l.store.IncrementWindow(ctx, identity, window.WindowStart); err != nil {
			return fmt.Errorf("%w: rate limit update failed: %v", apperrors.ErrInternal, err)
		}
		return nil
	}

	// No active window: clear stale rows and open a fresh one.
	if err := l.store.ResetWindow(ctx, identity, now); err != nil {
		return fmt.Errorf("%w: rate limit reset failed: %v", apperrors.ErrInternal, err)
	}
	return nil
}
