package circadian

import "time"

// DimmingResult is the outcome of a time-shift dimming step
type DimmingResult struct {
	Brightness        int       `json:"brightness"`
	Kelvin            int       `json:"kelvin"`
	TimeOffsetMinutes float64   `json:"time_offset_minutes"`
	TargetTime        time.Time `json:"target_time"`
	AtLimit           bool      `json:"at_limit"`
}

// DimmingStep brightens or dims by moving a virtual clock along the
// unmodified curve instead of shifting midpoints. The result says how far,
// in minutes, the caller's virtual time moved and where it landed.
func DimmingStep(now time.Time, day SolarDay, dir Direction, cfg Config) DimmingResult {
	hour := day.SolarTime(now)
	sun := day.SunTimes()
	cond := Conditions{Sun: &sun}

	curve := curveAt(hour, cfg, AxisBrightness, AreaState{})
	current := curve.now()
	lo, hi := curve.lo, curve.hi

	atLimit := dir == DirectionNone ||
		(dir == Up && current >= hi-brightnessBoundTolerance) ||
		(dir == Down && current <= lo+brightnessBoundTolerance)
	if atLimit {
		res := Calculate(hour, cfg, AreaState{}, cond)
		return DimmingResult{
			Brightness: res.Brightness,
			Kelvin:     res.ColorTemp,
			TargetTime: now,
			AtLimit:    true,
		}
	}

	step := stepSize(cfg.MinBrightness, cfg.MaxBrightness, cfg.MaxDimSteps)
	target := clamp(current+float64(dir)*step, lo, hi)

	finder := newFinder(curve, AxisBrightness)
	v, ok := finder.lookup(target)
	if !ok {
		v = finder.endpoint(target, dir)
	}
	offset := (v - curve.window.h48) * 60

	// Evaluate on the same half so a window endpoint does not wrap into
	// the other phase
	natural := newHalfCurve(cfg, curve.window, AxisColor, AreaState{}).at(v)
	color := applyRules(natural, wrap24(v), cfg, 0, cond)
	return DimmingResult{
		Brightness:        int(curve.at(v)),
		Kelvin:            int(color.Kelvin),
		TimeOffsetMinutes: offset,
		TargetTime:        now.Add(time.Duration(offset * float64(time.Minute))),
	}
}
