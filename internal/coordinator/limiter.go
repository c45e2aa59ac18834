package coordinator

import (
	"context"

	"golang.org/x/sync/semaphore"

	"meetsync/internal/observability"
)

// DefaultExternalPoolSize bounds concurrent calendar-provider calls so
// the service stays under provider quota.
const DefaultExternalPoolSize = 4

// ExternalLimiter bounds how many calls may be in flight against the
// external calendar provider. Excess callers queue; nothing is retried
// here and provider errors pass through unchanged.
type ExternalLimiter struct {
	sem *semaphore.Weighted
}

// NewExternalLimiter returns a limiter with the given pool size.
// Non-positive sizes fall back to the default.
func NewExternalLimiter(size int) *ExternalLimiter {
	if size <= 0 {
		size = DefaultExternalPoolSize
	}
	return &ExternalLimiter{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn once a pool slot is free. It returns ctx.Err() if the
// caller gives up while queued, otherwise fn's error verbatim.
func (l *ExternalLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	observability.ExternalCallsInFlight.Inc()
	defer func() {
		observability.ExternalCallsInFlight.Dec()
		l.sem.Release(1)
	}()

	return fn(ctx)
}
