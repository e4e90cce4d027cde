// Package clock provides helpers for time-related operations.
package clock

import (
	"context"
	"time"
)

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff spaces retry attempts with exponentially growing delays.
type Backoff struct {
	// Initial is the delay before the first retry. Zero means one second.
	Initial time.Duration
	// Max caps the delay. Zero means no cap.
	Max time.Duration
}

// Delay returns the wait for the given attempt, counted from zero.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	if d <= 0 {
		d = time.Second
	}
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Wait sleeps for the attempt's delay or returns early if the context is
// canceled.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	return SleepWithContext(ctx, b.Delay(attempt))
}
