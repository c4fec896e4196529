// Package resilience provides a small retry helper for flaky startup
// dependencies.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

const (
	initialDelay = 250 * time.Millisecond
	maxDelay     = 5 * time.Second
)

// Retry runs fn up to attempts times, doubling the delay between tries
// from 250ms up to 5s with up to 20% jitter. It honours ctx cancellation
// during backoff.
func Retry(ctx context.Context, name string, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := initialDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				slog.Info("succeeded after retry", "operation", name, "attempt", attempt)
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		sleep := delay + time.Duration(rand.Int63n(int64(delay)/5+1))
		slog.Warn("operation failed, retrying",
			"operation", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
			"next_delay", sleep,
		)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return fmt.Errorf("%s aborted during backoff: %w", name, ctx.Err())
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}
