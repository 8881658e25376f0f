package outdoor

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Source names where an outdoor brightness value came from
type Source string

const (
	SourceOverride Source = "override"
	SourceLux      Source = "lux"
	SourceWeather  Source = "weather"
	SourceAngle    Source = "angle"
)

// ParseSource validates a preferred source name
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceLux, SourceWeather, SourceAngle:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown outdoor source %q", s)
}

// Status is a snapshot of the tracker, used for logging and health output
type Status struct {
	Preferred  Source   `json:"preferred"`
	Active     Source   `json:"active"`
	Normalized float64  `json:"normalized"`
	SmoothLux  *float64 `json:"smoothed_lux,omitempty"`
	CloudCover *float64 `json:"cloud_cover,omitempty"`
	Floor      float64  `json:"lux_floor,omitempty"`
	Ceiling    float64  `json:"lux_ceiling,omitempty"`
	Override   string   `json:"override,omitempty"`
}

// Tracker estimates how bright it is outdoors as a value in [0,1].
//
// The chain is override, then lux sensor, then weather cloud cover, then the
// clear-sky sun angle estimate. The preferred source decides where the chain
// starts: "lux" walks all of it, "weather" skips the sensor, and "angle" uses
// only the estimate. An active override always wins.
type Tracker struct {
	mu        sync.RWMutex
	preferred Source
	smoothing time.Duration
	baselines Baselines
	emaLux    *float64
	lastLux   time.Time
	cloud     *float64
	lat, lon  float64

	overrides *ConditionOverrides
	logger    *slog.Logger
}

// NewTracker creates a tracker for the location
func NewTracker(preferred Source, smoothing time.Duration, lat, lon float64, logger *slog.Logger) *Tracker {
	return &Tracker{
		preferred: preferred,
		smoothing: smoothing,
		lat:       lat,
		lon:       lon,
		overrides: NewConditionOverrides(),
		logger:    logger,
	}
}

// Overrides exposes the condition override holder
func (t *Tracker) Overrides() *ConditionOverrides {
	return t.overrides
}

// SetBaselines installs the lux floor and ceiling
func (t *Tracker) SetBaselines(b Baselines) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baselines = b
}

// Baselines returns the current lux floor and ceiling
func (t *Tracker) Baselines() Baselines {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baselines
}

// UpdateLux folds a raw reading into the exponential moving average and
// returns the smoothed value. The first reading seeds the average, and a
// zero smoothing interval passes readings through.
func (t *Tracker) UpdateLux(raw float64, at time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.emaLux == nil, t.smoothing <= 0:
		v := raw
		t.emaLux = &v
	default:
		if dt := at.Sub(t.lastLux); dt > 0 {
			alpha := 1 - math.Exp(-dt.Seconds()/t.smoothing.Seconds())
			v := *t.emaLux + alpha*(raw-*t.emaLux)
			t.emaLux = &v
		}
	}
	if at.After(t.lastLux) {
		t.lastLux = at
	}
	return *t.emaLux
}

// UpdateWeather records cloud cover in percent
func (t *Tracker) UpdateWeather(cloudCover float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := math.Max(0, math.Min(100, cloudCover))
	t.cloud = &v
}

// Normalized returns the outdoor brightness at now
func (t *Tracker) Normalized(now time.Time) float64 {
	v, _ := t.evaluate(now)
	return v
}

// Status reports the chain state at now
func (t *Tracker) Status(now time.Time) Status {
	v, src := t.evaluate(now)

	t.mu.RLock()
	defer t.mu.RUnlock()

	st := Status{
		Preferred:  t.preferred,
		Active:     src,
		Normalized: v,
		Floor:      t.baselines.Floor,
		Ceiling:    t.baselines.Ceiling,
	}
	if t.emaLux != nil {
		lux := *t.emaLux
		st.SmoothLux = &lux
	}
	if t.cloud != nil {
		c := *t.cloud
		st.CloudCover = &c
	}
	if ov, ok := t.overrides.Active(); ok {
		st.Override = string(ov.Condition)
	}
	return st
}

func (t *Tracker) evaluate(now time.Time) (float64, Source) {
	elevation := Elevation(now, t.lat, t.lon)

	if ov, ok := t.overrides.Active(); ok {
		mult, _ := ov.Condition.Multiplier()
		return AngleNormalized(elevation) * mult, SourceOverride
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.preferred == SourceLux && t.emaLux != nil && t.baselines.Valid() {
		return SunFactor(*t.emaLux, t.baselines.Ceiling, t.baselines.Floor), SourceLux
	}
	if t.preferred != SourceAngle && t.cloud != nil {
		return WeatherNormalized(*t.cloud, elevation), SourceWeather
	}
	return AngleNormalized(elevation), SourceAngle
}
