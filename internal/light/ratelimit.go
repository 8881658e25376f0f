package light

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RefreshLimiter enforces a minimum interval between automatic refreshes of
// the same area
type RefreshLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        map[string]time.Time
}

// NewRefreshLimiter creates a limiter with the given minimum interval
func NewRefreshLimiter(minInterval time.Duration) *RefreshLimiter {
	return &RefreshLimiter{
		minInterval: minInterval,
		last:        make(map[string]time.Time),
	}
}

// Allow reports whether the area may refresh at now, recording the refresh if so
func (rl *RefreshLimiter) Allow(area string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if last, ok := rl.last[area]; ok && now.Sub(last) < rl.minInterval {
		return false
	}
	rl.last[area] = now
	return true
}

// Record marks the area as just refreshed, e.g. after a manual command
// already pushed fresh output
func (rl *RefreshLimiter) Record(area string, now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.last[area] = now
}

// Last returns when the area last refreshed
func (rl *RefreshLimiter) Last(area string) (time.Time, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	t, ok := rl.last[area]
	return t, ok
}

// StepLimiter is a per-area token bucket for manual step commands, so a
// held-down button produces a bounded number of steps
type StepLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewStepLimiter allows perSec steps per second per area with the given burst
func NewStepLimiter(perSec float64, burst int) *StepLimiter {
	return &StepLimiter{
		limit:    rate.Limit(perSec),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// AllowAt reports whether a step for the area may proceed at now
func (sl *StepLimiter) AllowAt(area string, now time.Time) bool {
	sl.mu.Lock()
	l, ok := sl.limiters[area]
	if !ok {
		l = rate.NewLimiter(sl.limit, sl.burst)
		sl.limiters[area] = l
	}
	sl.mu.Unlock()

	return l.AllowN(now, 1)
}
