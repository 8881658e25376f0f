package outdoor

import (
	"math"
	"time"
)

// Trend and stability labels for a lux window
const (
	TrendUnknown     = "unknown"
	TrendBrightening = "brightening"
	TrendDimming     = "dimming"
	TrendStable      = "stable"

	StabilityVolatile = "volatile"
	StabilityVariable = "variable"
	StabilityStable   = "stable"
)

// WindowStats summarizes outdoor readings over a recent window
type WindowStats struct {
	Window     string  `json:"window"`
	Count      int     `json:"count"`
	AverageLux float64 `json:"average_lux"`
	MinLux     float64 `json:"min_lux"`
	MaxLux     float64 `json:"max_lux"`
	Trend      string  `json:"trend"`
	Stability  string  `json:"stability"`
	Label      string  `json:"label"`
}

// SummarizeWindow computes stats over readings newer than now-window.
// Readings must be in ascending time order.
func SummarizeWindow(readings []Reading, window time.Duration, now time.Time) WindowStats {
	stats := WindowStats{
		Window:    window.String(),
		Trend:     TrendUnknown,
		Stability: TrendUnknown,
		Label:     TrendUnknown,
	}

	cutoff := now.Add(-window)
	var lux []float64
	for _, r := range readings {
		if r.Timestamp.After(cutoff) && !r.Timestamp.After(now) {
			lux = append(lux, r.Lux)
		}
	}
	if len(lux) == 0 {
		return stats
	}

	stats.MinLux, stats.MaxLux = lux[0], lux[0]
	var sum float64
	for _, v := range lux {
		sum += v
		stats.MinLux = math.Min(stats.MinLux, v)
		stats.MaxLux = math.Max(stats.MaxLux, v)
	}

	stats.Count = len(lux)
	stats.AverageLux = sum / float64(len(lux))
	stats.Trend = luxTrend(lux)
	stats.Stability = luxStability(lux, stats.AverageLux)
	stats.Label = LuxLabel(stats.AverageLux)
	return stats
}

// luxTrend compares the halves of the window; a 20% change is a trend
func luxTrend(lux []float64) string {
	if len(lux) < 3 {
		return TrendUnknown
	}

	mid := len(lux) / 2
	first, second := mean(lux[:mid]), mean(lux[mid:])

	if first == 0 {
		if second > 0 {
			return TrendBrightening
		}
		return TrendStable
	}

	change := (second - first) / first
	switch {
	case change > 0.2:
		return TrendBrightening
	case change < -0.2:
		return TrendDimming
	}
	return TrendStable
}

// luxStability grades the coefficient of variation
func luxStability(lux []float64, avg float64) string {
	if len(lux) < 2 || avg == 0 {
		return TrendUnknown
	}

	var sq float64
	for _, v := range lux {
		sq += (v - avg) * (v - avg)
	}
	cv := math.Sqrt(sq/float64(len(lux))) / avg

	switch {
	case cv > 0.5:
		return StabilityVolatile
	case cv > 0.2:
		return StabilityVariable
	}
	return StabilityStable
}

// LuxLabel names an outdoor illuminance level
func LuxLabel(lux float64) string {
	switch {
	case lux <= 10:
		return "dark"
	case lux <= 400:
		return "twilight"
	case lux <= 2000:
		return "overcast"
	case lux <= 20000:
		return "daylight"
	}
	return "full_sun"
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
