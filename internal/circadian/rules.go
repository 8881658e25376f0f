package circadian

import "math"

// Rule names reported in results
const (
	RuleWarmNight = "warm_night"
	RuleCoolDay   = "cool_day"
	RuleDaylight  = "daylight"
)

// ColorRender is the color pipeline output: the natural curve value, the
// value after rules and override, and which rules pulled on it
type ColorRender struct {
	Natural float64  `json:"natural"`
	Kelvin  float64  `json:"kelvin"`
	Active  bool     `json:"active"`
	Rules   []string `json:"rules,omitempty"`
}

// RenderColor runs the full color pipeline for the hour
func RenderColor(hour float64, cfg Config, state AreaState, cond Conditions) ColorRender {
	return renderColor(state.effectiveHour(hour), cfg, state, cond)
}

// ActiveRules names the rules currently pulling on the rendered color
func ActiveRules(hour float64, cfg Config, state AreaState, cond Conditions) []string {
	return RenderColor(hour, cfg, state, cond).Rules
}

func renderColor(hour float64, cfg Config, state AreaState, cond Conditions) ColorRender {
	natural := curveAt(hour, cfg, AxisColor, state).now()
	out := applyRules(natural, hour, cfg, state.colorOverride(), cond)
	out.Natural = natural
	return out
}

// applyRules adds the override to the natural value, then lets the enabled
// rules pull it toward their (override-shifted) targets. Warm night only
// pulls down and cool day only pulls up.
func applyRules(natural, hour float64, cfg Config, override float64, cond Conditions) ColorRender {
	sun := cond.sun()
	v := natural + override
	var out ColorRender

	if cfg.WarmNight.Enabled {
		target := float64(cfg.WarmNight.Target) + override
		if v > target {
			start, end := cfg.WarmNight.warmWindow(sun)
			if w := windowWeight(hour, start, end, minutesToHours(cfg.WarmNight.Fade)); w > 0 {
				v = pull(v, target, w)
				out.Active = true
				out.Rules = append(out.Rules, RuleWarmNight)
			}
		}
	}

	if cfg.CoolDay.Enabled {
		target := float64(cfg.CoolDay.Target) + override
		if v < target {
			start, end := cfg.CoolDay.coolWindow(sun)
			if w := windowWeight(hour, start, end, minutesToHours(cfg.CoolDay.Fade)); w > 0 {
				v = pull(v, target, w)
				out.Active = true
				out.Rules = append(out.Rules, RuleCoolDay)
			}
		}
	}

	if cfg.DaylightCCT > 0 && cond.Outdoor != nil {
		w := clamp(*cond.Outdoor*cfg.ColorSensitivity, 0, 1)
		target := float64(cfg.DaylightCCT) + override
		if w > 0 && math.Abs(target-v) > 1e-9 {
			v = pull(v, target, w)
			out.Active = true
			out.Rules = append(out.Rules, RuleDaylight)
		}
	}

	out.Kelvin = clamp(v, float64(cfg.MinColorTemp), float64(cfg.MaxColorTemp))
	return out
}

// warmWindow spans the night: from sunset+start to sunrise+end. The sunrise
// and sunset modes keep only the half on their side of solar midnight.
func (r SolarRule) warmWindow(sun SunTimes) (start, end float64) {
	start = wrap24(sun.Sunset + minutesToHours(r.StartOffset))
	end = wrap24(sun.Sunrise + minutesToHours(r.EndOffset))
	switch r.Mode {
	case RuleModeSunrise:
		start = sun.SolarMid
	case RuleModeSunset:
		end = sun.SolarMid
	}
	return start, end
}

// coolWindow spans the day: from sunrise+start to sunset+end, optionally cut
// at solar noon.
func (r SolarRule) coolWindow(sun SunTimes) (start, end float64) {
	start = wrap24(sun.Sunrise + minutesToHours(r.StartOffset))
	end = wrap24(sun.Sunset + minutesToHours(r.EndOffset))
	switch r.Mode {
	case RuleModeSunrise:
		end = sun.SolarNoon
	case RuleModeSunset:
		start = sun.SolarNoon
	}
	return start, end
}

// windowWeight is 1 inside [start, end], ramping linearly over fade hours at
// each edge and 0 outside. Windows with start > end wrap midnight.
func windowWeight(hour, start, end, fade float64) float64 {
	hour = wrap24(hour)

	var fromStart, toEnd float64
	if start > end {
		if hour < start && hour > end {
			return 0
		}
		fromStart = hour - start
		if hour < start {
			fromStart += 24
		}
		toEnd = end - hour
		if hour > end {
			toEnd += 24
		}
	} else {
		if hour < start || hour > end {
			return 0
		}
		fromStart = hour - start
		toEnd = end - hour
	}

	w := 1.0
	if fade > 0.01 {
		if fromStart < fade {
			w = math.Min(w, fromStart/fade)
		}
		if toEnd < fade {
			w = math.Min(w, toEnd/fade)
		}
	}
	return w
}

func pull(v, target, w float64) float64 {
	if w >= 1 {
		return target
	}
	return v + (target-v)*w
}

func minutesToHours(m int) float64 {
	return float64(m) / 60
}
