package download

import (
	"context"
	"time"
)

// RetryPolicy bounds the wait-and-retry loop for rate-limited stream
// requests. Waits grow linearly: Initial, Initial+Step, Initial+2*Step, ...
type RetryPolicy struct {
	Initial time.Duration
	Step    time.Duration

	// MaxAttempts counts every request, the first one included.
	MaxAttempts int
}

// DefaultRetryPolicy waits 5s, 10s, 15s, ... for at most 10 attempts, i.e.
// no more than 225s of waiting per item.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Initial: 5 * time.Second, Step: 5 * time.Second, MaxAttempts: 10}
}

// Delay returns the wait after the n-th transient failure (zero-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	return p.Initial + time.Duration(n)*p.Step
}

// MaxWait is the total time spent waiting when every attempt fails.
func (p RetryPolicy) MaxWait() time.Duration {
	var total time.Duration
	for n := 0; n < p.MaxAttempts-1; n++ {
		total += p.Delay(n)
	}
	return total
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
