package outdoor

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

const (
	// clearSkyLux is the direct-sun illuminance at zenith
	clearSkyLux = 120000.0
	// fullSunIntensity is log2(100000/300): the log range from dim daylight to full sun
	fullSunIntensity = 8.4
	// maxCloudDimming is how much full cloud cover removes from clear-sky lux
	maxCloudDimming = 0.85
)

// Elevation returns the sun's altitude in degrees at t for the location
func Elevation(t time.Time, lat, lon float64) float64 {
	pos := suncalc.GetPosition(t, lat, lon)
	return pos.Altitude * 180 / math.Pi
}

// AngleNormalized estimates outdoor brightness in [0,1] from sun elevation
// alone, assuming a clear sky
func AngleNormalized(elevation float64) float64 {
	return normalizeLux(estimatedLux(elevation))
}

// WeatherNormalized scales the clear-sky estimate by cloud cover (0-100)
func WeatherNormalized(cloudCover, elevation float64) float64 {
	fraction := math.Max(0, math.Min(100, cloudCover)) / 100
	return normalizeLux(estimatedLux(elevation) * (1 - fraction*maxCloudDimming))
}

// SunFactor places smoothed lux between the learned floor and ceiling on a
// log scale. Unusable baselines yield 1.0.
func SunFactor(lux, ceiling, floor float64) float64 {
	if ceiling <= floor || ceiling <= 0 || floor <= 0 {
		return 1.0
	}

	logLux := math.Log(math.Max(1, lux))
	logFloor := math.Log(math.Max(1, floor))
	logCeiling := math.Log(ceiling)
	if logCeiling <= logFloor {
		return 1.0
	}

	return clamp01((logLux - logFloor) / (logCeiling - logFloor))
}

func estimatedLux(elevation float64) float64 {
	return clearSkyLux * math.Max(0, math.Sin(elevation*math.Pi/180))
}

func normalizeLux(lux float64) float64 {
	if lux <= 0 {
		return 0
	}
	return clamp01(math.Log2(math.Max(1, lux)/300) / fullSunIntensity)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
