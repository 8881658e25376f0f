package outdoor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Condition is a named outdoor brightness condition a user can force
type Condition string

const (
	Sunny         Condition = "sunny"
	PartlyCloudy  Condition = "partly_cloudy"
	Cloudy        Condition = "cloudy"
	HeavyOvercast Condition = "heavy_overcast"
)

var conditionMultipliers = map[Condition]float64{
	Sunny:         1.0,
	PartlyCloudy:  0.6,
	Cloudy:        0.3,
	HeavyOvercast: 0.15,
}

// Multiplier returns the clear-sky multiplier for the condition
func (c Condition) Multiplier() (float64, bool) {
	m, ok := conditionMultipliers[c]
	return m, ok
}

// ConditionNames lists the accepted condition names
func ConditionNames() []string {
	names := make([]string, 0, len(conditionMultipliers))
	for c := range conditionMultipliers {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// ActiveOverride describes an unexpired condition override
type ActiveOverride struct {
	Condition Condition
	ExpiresAt time.Time
}

// ConditionOverrides holds at most one outdoor condition override with an expiry
type ConditionOverrides struct {
	mu        sync.Mutex
	condition Condition
	expiresAt time.Time
	now       func() time.Time
}

// NewConditionOverrides creates an empty override holder
func NewConditionOverrides() *ConditionOverrides {
	return &ConditionOverrides{now: time.Now}
}

// Set forces a condition for the given duration
func (o *ConditionOverrides) Set(condition Condition, duration time.Duration) (time.Time, error) {
	if _, ok := condition.Multiplier(); !ok {
		return time.Time{}, fmt.Errorf("unknown outdoor condition %q", condition)
	}
	if duration <= 0 {
		return time.Time{}, fmt.Errorf("override duration must be positive")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.condition = condition
	o.expiresAt = o.now().Add(duration)
	return o.expiresAt, nil
}

// Active returns the current override, clearing it if it has expired
func (o *ConditionOverrides) Active() (ActiveOverride, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.condition == "" {
		return ActiveOverride{}, false
	}
	if !o.now().Before(o.expiresAt) {
		o.condition = ""
		o.expiresAt = time.Time{}
		return ActiveOverride{}, false
	}
	return ActiveOverride{Condition: o.condition, ExpiresAt: o.expiresAt}, true
}

// Clear removes the override, reporting whether one was set
func (o *ConditionOverrides) Clear() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	had := o.condition != ""
	o.condition = ""
	o.expiresAt = time.Time{}
	return had
}
