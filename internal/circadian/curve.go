package circadian

import "math"

// slopes maps speed 1-10 to logistic steepness; index 0 is unused
var slopes = [...]float64{0, 0.4, 0.6, 0.8, 1.0, 1.3, 1.7, 2.3, 3.0, 4.0, 5.5}

// SlopeForSpeed returns the logistic steepness for a speed, clamped to 1-10
func SlopeForSpeed(speed int) float64 {
	if speed < 1 {
		speed = 1
	}
	if speed > 10 {
		speed = 10
	}
	return slopes[speed]
}

// HalfDirection selects the rising (morning) or falling (evening) half
type HalfDirection int

const (
	Rising  HalfDirection = 1
	Falling HalfDirection = -1
)

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// MapHalf evaluates one half of the daily curve at hour t and maps it onto
// [outMin, outMax]. Falling halves expect t shifted so that the phase start
// sits at 12.
func MapHalf(t, midpoint, steepness, outMin, outMax float64, dir HalfDirection) float64 {
	var v float64
	if dir == Rising {
		v = logistic(steepness * (t - midpoint))
	} else {
		v = 1 - logistic(steepness*((t-12)-midpoint))
	}
	return clamp(outMin+(outMax-outMin)*v, outMin, outMax)
}

// Phase names the half of the day an hour falls in
type Phase string

const (
	PhaseAscend  Phase = "ascend"
	PhaseDescend Phase = "descend"
)

// phaseWindow is a half-day window on a 48h axis so that windows spanning
// midnight are contiguous.
type phaseWindow struct {
	phase Phase
	h48   float64
	start float64
	end   float64
}

func (w phaseWindow) morning() bool { return w.phase == PhaseAscend }

func (w phaseWindow) center() float64 { return (w.start + w.end) / 2 }

func phaseBounds(cfg Config) (ascend, descend float64) {
	ascend, descend = cfg.AscendStart, cfg.DescendStart
	if descend <= ascend {
		descend += 24
	}
	return ascend, descend
}

func phaseAt(hour float64, cfg Config) phaseWindow {
	ascend, descend := phaseBounds(cfg)
	h48 := wrap24(hour)
	if h48 < ascend {
		h48 += 24
	}
	if h48 >= ascend && h48 < descend {
		return phaseWindow{phase: PhaseAscend, h48: h48, start: ascend, end: descend}
	}
	return phaseWindow{phase: PhaseDescend, h48: h48, start: descend, end: ascend + 24}
}

func windowFor(phase Phase, cfg Config) phaseWindow {
	ascend, descend := phaseBounds(cfg)
	if phase == PhaseAscend {
		return phaseWindow{phase: PhaseAscend, h48: ascend, start: ascend, end: descend}
	}
	return phaseWindow{phase: PhaseDescend, h48: descend, start: descend, end: ascend + 24}
}

// PhaseOf reports whether the hour falls in the ascend or descend phase
func PhaseOf(hour float64, cfg Config) Phase {
	return phaseAt(hour, cfg).phase
}

// CrossedPhaseBoundary reports whether moving from prev to hour entered a
// different phase. Callers reset stepped state when it does.
func CrossedPhaseBoundary(prev, hour float64, cfg Config) bool {
	return PhaseOf(prev, cfg) != PhaseOf(hour, cfg)
}

// Axis selects which curve an operation adjusts
type Axis string

const (
	AxisBrightness Axis = "brightness"
	AxisColor      Axis = "color"
	AxisStep       Axis = "step"
)

// ParseAxis validates an axis name
func ParseAxis(s string) (Axis, error) {
	switch Axis(s) {
	case AxisBrightness, AxisColor, AxisStep:
		return Axis(s), nil
	}
	return "", ErrUnknownAxis
}

// maxMidOffset keeps a shifted midpoint strictly within half a day of the
// window center so lifting it back is unambiguous.
const maxMidOffset = 11.9

// halfCurve is one axis of the active half-day, with its midpoint lifted
// onto the window's 48h axis.
type halfCurve struct {
	window phaseWindow
	mid    float64
	k      float64
	lo     float64
	hi     float64
	eps    float64
}

func newHalfCurve(cfg Config, window phaseWindow, axis Axis, state AreaState) halfCurve {
	c := halfCurve{window: window}

	var stored *float64
	if axis == AxisColor {
		stored = state.ColorMid
		c.lo, c.hi, c.eps = float64(cfg.MinColorTemp), float64(cfg.MaxColorTemp), colorEpsilon
	} else {
		stored = state.BrightnessMid
		c.lo, c.hi, c.eps = float64(cfg.MinBrightness), float64(cfg.MaxBrightness), brightnessEpsilon
	}

	mid := cfg.BedTime
	c.k = SlopeForSpeed(cfg.BedSpeed)
	if window.morning() {
		mid = cfg.WakeTime
		c.k = SlopeForSpeed(cfg.WakeSpeed)
	}
	if stored != nil {
		mid = *stored
	}
	c.mid = liftToWindow(mid, window)
	return c
}

func liftToWindow(mid float64, w phaseWindow) float64 {
	return mid + 24*math.Floor((w.center()-mid)/24+0.5)
}

func curveAt(hour float64, cfg Config, axis Axis, state AreaState) halfCurve {
	return newHalfCurve(cfg, phaseAt(hour, cfg), axis, state)
}

// at evaluates the curve at an hour on the window's 48h axis
func (c halfCurve) at(h float64) float64 {
	if c.window.morning() {
		return MapHalf(h, c.mid, c.k, c.lo, c.hi, Rising)
	}
	start := c.window.start
	return MapHalf(12+(h-start), c.mid-start, c.k, c.lo, c.hi, Falling)
}

func (c halfCurve) now() float64 {
	return c.at(c.window.h48)
}

// invert returns the hour at which the unbounded logistic reaches value
func (c halfCurve) invert(value float64) float64 {
	r := (value - c.lo) / (c.hi - c.lo)
	r = clamp(r, 1e-6, 1-1e-6)
	if c.window.morning() {
		return c.mid + math.Log(r/(1-r))/c.k
	}
	return c.mid + math.Log((1-r)/r)/c.k
}

// shiftedMid returns the wrapped midpoint that makes the curve produce at
// the current hour what it currently produces at virtual hour v.
func (c halfCurve) shiftedMid(v float64) float64 {
	center := c.window.center()
	m := clamp(c.mid+(c.window.h48-v), center-maxMidOffset, center+maxMidOffset)
	return wrap24(m)
}

// BrightnessAt returns the unrounded curve brightness for the hour
func BrightnessAt(hour float64, cfg Config, state AreaState) float64 {
	hour = state.effectiveHour(hour)
	return curveAt(hour, cfg, AxisBrightness, state).now()
}

// NaturalColorAt returns the unrounded curve color temperature before any
// solar rule or override is applied
func NaturalColorAt(hour float64, cfg Config, state AreaState) float64 {
	hour = state.effectiveHour(hour)
	return curveAt(hour, cfg, AxisColor, state).now()
}

// CalculateBrightness returns the integer brightness percentage
func CalculateBrightness(hour float64, cfg Config, state AreaState) int {
	return int(BrightnessAt(hour, cfg, state))
}

// CalculateColorTemperature returns the integer rendered color temperature
func CalculateColorTemperature(hour float64, cfg Config, state AreaState, cond Conditions) int {
	return int(renderColor(state.effectiveHour(hour), cfg, state, cond).Kelvin)
}

// Conditions carries optional environment inputs. Nil Sun uses the default
// sun times; nil Outdoor disables the daylight blend.
type Conditions struct {
	Sun     *SunTimes
	Outdoor *float64
}

func (c Conditions) sun() SunTimes {
	if c.Sun != nil {
		return *c.Sun
	}
	return DefaultSunTimes()
}

// LightingResult is the full lighting output for one instant
type LightingResult struct {
	Brightness   int      `json:"brightness"`
	ColorTemp    int      `json:"color_temp"`
	RGB          RGB      `json:"rgb"`
	XY           XY       `json:"xy"`
	Phase        Phase    `json:"phase"`
	NaturalColor int      `json:"natural_color"`
	ActiveRules  []string `json:"active_rules,omitempty"`
	Frozen       bool     `json:"frozen,omitempty"`
}

// Calculate renders brightness and color for the hour. A frozen state
// renders at its frozen hour instead.
func Calculate(hour float64, cfg Config, state AreaState, cond Conditions) LightingResult {
	h := state.effectiveHour(hour)
	color := renderColor(h, cfg, state, cond)

	return LightingResult{
		Brightness:   CalculateBrightness(h, cfg, state),
		ColorTemp:    int(color.Kelvin),
		RGB:          KelvinToRGB(color.Kelvin),
		XY:           KelvinToXY(color.Kelvin),
		Phase:        PhaseOf(h, cfg),
		NaturalColor: int(color.Natural),
		ActiveRules:  color.Rules,
		Frozen:       state.IsFrozen(),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
