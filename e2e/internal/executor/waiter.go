package executor

import (
	"context"
	"time"
)

// WaitUntil sleeps until targetSeconds after start, returning early with
// ctx's error if it is cancelled
func WaitUntil(ctx context.Context, start time.Time, targetSeconds int) error {
	delay := time.Until(start.Add(time.Duration(targetSeconds) * time.Second))
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetElapsed returns elapsed seconds since start
func GetElapsed(start time.Time) float64 {
	return time.Since(start).Seconds()
}
