package circadian

import (
	"fmt"
	"math"
)

// SetPosition moves an axis so that its rendered value sits at pct percent
// of the configured range. AxisStep moves both axes; on that axis an
// existing color override may only shrink, so a low target lets the solar
// rule re-engage and a later high target does not bring the override back.
//
// The logistic only approaches its bounds, and the integer outputs truncate,
// so 100% brightness renders as MaxBrightness-1 and 0% as MinBrightness.
// The same holds for every refresh, so the position does not flicker.
func SetPosition(hour, pct float64, axis Axis, cfg Config, state AreaState, cond Conditions) (*StepResult, error) {
	if axis != AxisBrightness && axis != AxisColor && axis != AxisStep {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
	}
	pct = clamp(pct, 0, 100)
	h := state.effectiveHour(hour)

	var patch StatePatch
	if axis == AxisBrightness || axis == AxisStep {
		mid := positionedMid(h, cfg, state, AxisBrightness, pct)
		patch.BrightnessMid = &mid
	}

	if axis == AxisColor || axis == AxisStep {
		mid := positionedMid(h, cfg, state, AxisColor, pct)
		patch.ColorMid = &mid

		target := percentOf(cfg.MinColorTemp, cfg.MaxColorTemp, pct)
		bare := state.Apply(patch)
		bare.ColorOverride = nil
		rendered := renderColor(h, cfg, bare, cond)
		deficit := target - rendered.Kelvin

		next := positionedOverride(axis, state.ColorOverride, deficit, rendered.Active)
		switch {
		case next != nil:
			patch.ColorOverride = next
		case state.ColorOverride != nil:
			patch.ClearColorOverride = true
		}
	}

	return newStepResult(h, cfg, state.Apply(patch), cond, patch), nil
}

func positionedOverride(axis Axis, current *float64, deficit float64, active bool) *float64 {
	if axis == AxisColor {
		if active && math.Abs(deficit) >= minRenderedMove {
			return &deficit
		}
		return nil
	}

	// Combined axis: shrink only
	if current == nil || deficit**current <= 0 {
		return nil
	}
	if math.Abs(deficit) < math.Abs(*current) {
		return &deficit
	}
	kept := *current
	return &kept
}

// positionedMid finds the midpoint that puts the axis curve at pct of its
// range at the current hour
func positionedMid(hour float64, cfg Config, state AreaState, axis Axis, pct float64) float64 {
	curve := curveAt(hour, cfg, axis, state)
	target := curve.lo + (curve.hi-curve.lo)*pct/100

	v, ok := newFinder(curve, axis).lookup(target)
	if !ok {
		// Outside the sampled window; the logistic still has an exact inverse
		v = curve.invert(clamp(target, curve.lo+curve.eps, curve.hi-curve.eps))
	}
	return curve.shiftedMid(v)
}

func percentOf(lo, hi int, pct float64) float64 {
	return float64(lo) + float64(hi-lo)*pct/100
}
