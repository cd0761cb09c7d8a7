package pool

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
)

const (
	retryAttempts = 3
	retryBaseWait = 50 * time.Millisecond
)

// isTransient reports whether err is a write conflict worth retrying:
// either the pool's own ErrConflict or a postgres serialization failure
// (40001) / deadlock (40P01).
func isTransient(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// withRetry runs fn up to retryAttempts times, doubling the wait between
// attempts, and gives up early on non-transient errors or context
// cancellation.
func withRetry(ctx context.Context, fn func() error) error {
	wait := retryBaseWait
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
	return err
}
