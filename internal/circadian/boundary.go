package circadian

import (
	"fmt"
	"math"
)

const (
	sampleStep        = 0.05
	brightnessEpsilon = 0.1
	colorEpsilon      = 1.0
)

// CurveSample is one point of a sampled half-curve
type CurveSample struct {
	Hour  float64
	Value float64
}

// CurveBoundaries are the hours at which a half-curve leaves its plateaus.
// Reached is false when the curve never gets within epsilon of the bound
// inside the window, in which case the hour is a window endpoint.
type CurveBoundaries struct {
	MinHour    float64 `json:"min_hour"`
	MaxHour    float64 `json:"max_hour"`
	MinReached bool    `json:"min_reached"`
	MaxReached bool    `json:"max_reached"`
}

// BoundaryFinder inverts one half-curve by sampling it
type BoundaryFinder struct {
	curve   halfCurve
	axis    Axis
	samples []CurveSample
}

// NewBoundaryFinder samples the given phase's curve for an axis. Stored
// midpoints in state are honored.
func NewBoundaryFinder(cfg Config, state AreaState, axis Axis, phase Phase) (*BoundaryFinder, error) {
	if axis != AxisBrightness && axis != AxisColor {
		return nil, fmt.Errorf("%w: %q has no single curve", ErrUnknownAxis, axis)
	}
	if phase != PhaseAscend && phase != PhaseDescend {
		return nil, fmt.Errorf("%w: unknown phase %q", ErrInvalidConfig, phase)
	}
	return newFinder(newHalfCurve(cfg, windowFor(phase, cfg), axis, state), axis), nil
}

func newFinder(curve halfCurve, axis Axis) *BoundaryFinder {
	w := curve.window
	n := int(math.Round((w.end - w.start) / sampleStep))
	samples := make([]CurveSample, 0, n+1)
	for i := 0; i <= n; i++ {
		h := w.start + float64(i)*sampleStep
		samples = append(samples, CurveSample{Hour: h, Value: curve.at(h)})
	}
	return &BoundaryFinder{curve: curve, axis: axis, samples: samples}
}

// Morning reports whether the finder covers the ascending half
func (f *BoundaryFinder) Morning() bool {
	return f.curve.window.morning()
}

// Samples returns the sampled curve; hours are on the window's unwrapped axis
func (f *BoundaryFinder) Samples() []CurveSample {
	out := make([]CurveSample, len(f.samples))
	copy(out, f.samples)
	return out
}

// FindSolarTimeForValue returns the hour at which the curve produces target.
// When no sample pair brackets target, dimming picks the darker endpoint,
// brightening the brighter one, and no direction the endpoint whose value
// is closest.
func (f *BoundaryFinder) FindSolarTimeForValue(target float64, dir Direction) float64 {
	if h, ok := f.lookup(target); ok {
		return wrap24(h)
	}
	return wrap24(f.endpoint(target, dir))
}

func (f *BoundaryFinder) lookup(target float64) (float64, bool) {
	for i := 1; i < len(f.samples); i++ {
		a, b := f.samples[i-1], f.samples[i]
		if target < math.Min(a.Value, b.Value) || target > math.Max(a.Value, b.Value) {
			continue
		}
		if a.Value == b.Value {
			return a.Hour, true
		}
		return a.Hour + (target-a.Value)/(b.Value-a.Value)*(b.Hour-a.Hour), true
	}
	return 0, false
}

func (f *BoundaryFinder) endpoint(target float64, dir Direction) float64 {
	first, last := f.samples[0], f.samples[len(f.samples)-1]
	switch dir {
	case Down:
		if first.Value <= last.Value {
			return first.Hour
		}
		return last.Hour
	case Up:
		if first.Value >= last.Value {
			return first.Hour
		}
		return last.Hour
	}
	if math.Abs(first.Value-target) <= math.Abs(last.Value-target) {
		return first.Hour
	}
	return last.Hour
}

// CurveBoundaries locates the plateau edges, wrapped to [0, 24)
func (f *BoundaryFinder) CurveBoundaries() CurveBoundaries {
	b := f.boundaries()
	b.MinHour = wrap24(b.MinHour)
	b.MaxHour = wrap24(b.MaxHour)
	return b
}

// boundaries returns plateau edges on the unwrapped window axis. Brightness
// uses the interpolated lookup; color scans samples for the 1K band.
func (f *BoundaryFinder) boundaries() CurveBoundaries {
	lo, hi := f.curve.lo, f.curve.hi
	var b CurveBoundaries
	if f.axis == AxisColor {
		b.MinHour, b.MinReached = f.scanBand(lo)
		b.MaxHour, b.MaxReached = f.scanBand(hi)
		return b
	}

	b.MinHour, b.MinReached = f.lookup(lo + brightnessEpsilon)
	if !b.MinReached {
		b.MinHour = f.endpoint(lo+brightnessEpsilon, DirectionNone)
	}
	b.MaxHour, b.MaxReached = f.lookup(hi - brightnessEpsilon)
	if !b.MaxReached {
		b.MaxHour = f.endpoint(hi-brightnessEpsilon, DirectionNone)
	}
	return b
}

// scanBand walks forward for samples within colorEpsilon of bound. A
// plateau at the window start ends at its last in-band sample; otherwise the
// curve enters the band at the first in-band sample.
func (f *BoundaryFinder) scanBand(bound float64) (float64, bool) {
	inBand := func(s CurveSample) bool { return math.Abs(s.Value-bound) <= colorEpsilon }

	if inBand(f.samples[0]) {
		i := 0
		for i+1 < len(f.samples) && inBand(f.samples[i+1]) {
			i++
		}
		return f.samples[i].Hour, true
	}
	for _, s := range f.samples {
		if inBand(s) {
			return s.Hour, true
		}
	}
	return f.endpoint(bound, DirectionNone), false
}

// clampToBoundaries limits a virtual hour to the span between plateau edges
// the curve actually reaches inside its window
func (f *BoundaryFinder) clampToBoundaries(v float64) float64 {
	b := f.boundaries()
	if !b.MinReached || !b.MaxReached {
		return v
	}
	return clamp(v, math.Min(b.MinHour, b.MaxHour), math.Max(b.MinHour, b.MaxHour))
}
