package outdoor

import (
	"sort"
	"time"
)

const (
	minBaselineSamples = 10
	daytimeElevation   = 10.0
	floorPercentile    = 0.05
	ceilingPercentile  = 0.85
)

// LearnBaselines derives the lux floor and ceiling from history. Readings are
// averaged per clock hour, hours with the sun below 10 degrees are dropped,
// and the 5th and 85th percentiles of the remaining means become the floor
// and ceiling. ok is false with fewer than ten daytime hours or when the
// percentiles are unusable.
func LearnBaselines(readings []Reading, lat, lon float64) (Baselines, bool) {
	means := daytimeHourlyMeans(readings, lat, lon)
	if len(means) < minBaselineSamples {
		return Baselines{}, false
	}

	sort.Float64s(means)
	n := len(means)
	floor := means[int(float64(n)*floorPercentile)]
	ceiling := means[min(n-1, int(float64(n)*ceilingPercentile))]

	b := Baselines{Floor: floor, Ceiling: ceiling}
	if !b.Valid() {
		return Baselines{}, false
	}
	return b, true
}

func daytimeHourlyMeans(readings []Reading, lat, lon float64) []float64 {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, r := range readings {
		hour := r.Timestamp.UTC().Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{}
			buckets[hour] = b
		}
		b.sum += r.Lux
		b.count++
	}

	means := make([]float64, 0, len(buckets))
	for hour, b := range buckets {
		// Judge the hour by the sun at its midpoint
		if Elevation(hour.Add(30*time.Minute), lat, lon) <= daytimeElevation {
			continue
		}
		means = append(means, b.sum/float64(b.count))
	}
	return means
}
