package circadian

import (
	"fmt"
	"math"
	"strings"
)

// Direction of a manual step
type Direction int

const (
	Down          Direction = -1
	DirectionNone Direction = 0
	Up            Direction = 1
)

// ParseDirection accepts up/down and their brighten/dim aliases
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "brighten", "brighter", "cooler":
		return Up, nil
	case "down", "dim", "dimmer", "warmer":
		return Down, nil
	}
	return DirectionNone, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "none"
}

// No-op tolerances at the configured bounds
const (
	brightnessBoundTolerance = 0.5
	colorBoundTolerance      = 10.0
	overrideClearThreshold   = 0.5
	minRenderedMove          = 1.0
)

// StepResult is the rendered output after a step together with the state
// changes the caller must persist
type StepResult struct {
	Brightness   int        `json:"brightness"`
	ColorTemp    int        `json:"color_temp"`
	RGB          RGB        `json:"rgb"`
	XY           XY         `json:"xy"`
	StateUpdates StatePatch `json:"state_updates"`
}

func newStepResult(hour float64, cfg Config, next AreaState, cond Conditions, patch StatePatch) *StepResult {
	brightness := curveAt(hour, cfg, AxisBrightness, next).now()
	color := renderColor(hour, cfg, next, cond)
	return &StepResult{
		Brightness:   int(brightness),
		ColorTemp:    int(color.Kelvin),
		RGB:          KelvinToRGB(color.Kelvin),
		XY:           KelvinToXY(color.Kelvin),
		StateUpdates: patch,
	}
}

// steppedMid returns the midpoint that moves the axis curve to target at
// the current hour, stopping short of the plateaus
func steppedMid(hour float64, cfg Config, state AreaState, axis Axis, target float64) float64 {
	curve := curveAt(hour, cfg, axis, state)
	v := curve.invert(clamp(target, curve.lo+curve.eps, curve.hi-curve.eps))
	v = newFinder(curve, axis).clampToBoundaries(v)
	return curve.shiftedMid(v)
}

func stepSize(lo, hi int, steps int) float64 {
	if steps < 1 {
		steps = DefaultMaxDimSteps
	}
	return float64(hi-lo) / float64(steps)
}

// BrightStep moves brightness one increment along the curve. It returns nil
// when brightness already sits at the bound in the requested direction.
func BrightStep(hour float64, dir Direction, cfg Config, state AreaState, cond Conditions) *StepResult {
	h := state.effectiveHour(hour)
	patch, ok := brightStepPatch(h, dir, cfg, state)
	if !ok {
		return nil
	}
	return newStepResult(h, cfg, state.Apply(patch), cond, patch)
}

func brightStepPatch(hour float64, dir Direction, cfg Config, state AreaState) (StatePatch, bool) {
	lo, hi := float64(cfg.MinBrightness), float64(cfg.MaxBrightness)
	current := curveAt(hour, cfg, AxisBrightness, state).now()

	switch {
	case dir == Up && current >= hi-brightnessBoundTolerance:
		return StatePatch{}, false
	case dir == Down && current <= lo+brightnessBoundTolerance:
		return StatePatch{}, false
	case dir == DirectionNone:
		return StatePatch{}, false
	}

	step := stepSize(cfg.MinBrightness, cfg.MaxBrightness, cfg.MaxDimSteps)
	target := clamp(current+float64(dir)*step, lo, hi)
	mid := steppedMid(hour, cfg, state, AxisBrightness, target)
	return StatePatch{BrightnessMid: &mid}, true
}

// ColorStep moves color temperature one increment. While a solar rule holds
// the rendered value, the step is carried by the color override instead of
// the midpoint. Returns nil at the configured bound.
func ColorStep(hour float64, dir Direction, cfg Config, state AreaState, cond Conditions) *StepResult {
	h := state.effectiveHour(hour)
	patch, ok := colorStepPatch(h, dir, cfg, state, cond)
	if !ok {
		return nil
	}
	return newStepResult(h, cfg, state.Apply(patch), cond, patch)
}

func colorStepPatch(hour float64, dir Direction, cfg Config, state AreaState, cond Conditions) (StatePatch, bool) {
	lo, hi := float64(cfg.MinColorTemp), float64(cfg.MaxColorTemp)
	before := renderColor(hour, cfg, state, cond)

	switch {
	case dir == Up && before.Kelvin >= hi-colorBoundTolerance:
		return StatePatch{}, false
	case dir == Down && before.Kelvin <= lo+colorBoundTolerance:
		return StatePatch{}, false
	case dir == DirectionNone:
		return StatePatch{}, false
	}

	d := float64(dir)
	step := stepSize(cfg.MinColorTemp, cfg.MaxColorTemp, cfg.MaxDimSteps)

	// Stepping against an existing override unwinds it first
	if ov := state.ColorOverride; ov != nil && *ov*d < 0 {
		next := *ov + d*step
		if next**ov <= 0 || math.Abs(next) < overrideClearThreshold {
			return StatePatch{ClearColorOverride: true}, true
		}
		return StatePatch{ColorOverride: &next}, true
	}

	target := clamp(before.Kelvin+d*step, lo, hi)
	mid := steppedMid(hour, cfg, state, AxisColor, before.Natural+d*step)
	patch := StatePatch{ColorMid: &mid}

	if !before.Active {
		return patch, true
	}

	after := renderColor(hour, cfg, state.Apply(patch), cond)
	current := state.colorOverride()
	if math.Abs(after.Kelvin-before.Kelvin) < minRenderedMove {
		// The rule swallowed the midpoint change; carry the whole step in
		// the override instead.
		next := current + d*step
		return StatePatch{ColorOverride: &next}, true
	}
	if deficit := target - after.Kelvin; math.Abs(deficit) >= minRenderedMove {
		next := current + deficit
		patch.ColorOverride = &next
	}
	return patch, true
}

// Step applies a brightness and a color step together. It is a no-op only
// when both axes are.
func Step(hour float64, dir Direction, cfg Config, state AreaState, cond Conditions) *StepResult {
	h := state.effectiveHour(hour)
	bright, brightOK := brightStepPatch(h, dir, cfg, state)
	color, colorOK := colorStepPatch(h, dir, cfg, state, cond)
	if !brightOK && !colorOK {
		return nil
	}
	patch := bright.Merge(color)
	return newStepResult(h, cfg, state.Apply(patch), cond, patch)
}
