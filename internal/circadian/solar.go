package circadian

import (
	"log/slog"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// SunTimes holds the solar landmarks the rules anchor on, expressed as
// fractional hours in the same coordinate as the hour passed to the engine.
type SunTimes struct {
	Sunrise   float64 `json:"sunrise"`
	Sunset    float64 `json:"sunset"`
	SolarNoon float64 `json:"solar_noon"`
	SolarMid  float64 `json:"solar_mid"`
}

// DefaultSunTimes is used when the caller supplies no sun times
func DefaultSunTimes() SunTimes {
	return SunTimes{Sunrise: 6, Sunset: 18, SolarNoon: 12, SolarMid: 0}
}

// LoadLocation resolves an IANA timezone name. An empty name is UTC, as with
// time.LoadLocation; unknown names degrade to the system zone with a warning.
func LoadLocation(name string, logger *slog.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if logger != nil {
			logger.Warn("Unknown timezone, falling back to local time", "timezone", name, "error", err)
		}
		return time.Local
	}
	return loc
}

// SolarClock computes the solar landmarks for a fixed observer location
type SolarClock struct {
	lat float64
	lon float64
	loc *time.Location
}

// NewSolarClock creates a clock for the given coordinates. A nil location
// means UTC.
func NewSolarClock(lat, lon float64, loc *time.Location) (*SolarClock, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrMissingLocation
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SolarClock{lat: lat, lon: lon, loc: loc}, nil
}

// Location returns the timezone the clock reports local times in
func (c *SolarClock) Location() *time.Location {
	return c.loc
}

// Day computes the landmarks for the local calendar day containing t
func (c *SolarClock) Day(t time.Time) SolarDay {
	local := t.In(c.loc)
	date := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, c.loc)

	times := suncalc.GetTimes(date, c.lat, c.lon)
	noonTime, ok := times[suncalc.SolarNoon]
	if !ok || noonTime.Value.IsZero() {
		return SolarDay{}
	}
	noon := noonTime.Value.In(c.loc)

	// Solar midnight is the instant 12h before noon, unless that lands on
	// the previous calendar day.
	midnight := noon.Add(-12 * time.Hour)
	if midnight.YearDay() != noon.YearDay() {
		midnight = noon.Add(12 * time.Hour)
	}

	day := SolarDay{
		valid:    true,
		date:     date,
		noon:     noon,
		midnight: midnight,
	}
	day.sunrise, day.hasSunrise = landmark(times, suncalc.Sunrise, noon)
	day.sunset, day.hasSunset = landmark(times, suncalc.Sunset, noon)
	return day
}

// landmark extracts a sun event, rejecting events suncalc could not compute
// (polar day or night).
func landmark(times map[suncalc.DayTimeName]suncalc.DayTime, name suncalc.DayTimeName, noon time.Time) (time.Time, bool) {
	dt, ok := times[name]
	if !ok || dt.Value.IsZero() {
		return time.Time{}, false
	}
	v := dt.Value.In(noon.Location())
	if d := v.Sub(noon); d > 24*time.Hour || d < -24*time.Hour {
		return time.Time{}, false
	}
	return v, true
}

// SolarDay holds one day's landmarks. The zero value has no landmarks and
// falls back to the civil clock.
type SolarDay struct {
	valid      bool
	date       time.Time
	noon       time.Time
	midnight   time.Time
	sunrise    time.Time
	sunset     time.Time
	hasSunrise bool
	hasSunset  bool
}

// HasLandmarks reports whether solar noon and midnight are known
func (d SolarDay) HasLandmarks() bool {
	return d.valid
}

// Covers reports whether t falls on the calendar day the landmarks were
// computed for
func (d SolarDay) Covers(t time.Time) bool {
	if !d.valid {
		return false
	}
	local := t.In(d.date.Location())
	return local.Year() == d.date.Year() && local.YearDay() == d.date.YearDay()
}

// SolarNoon returns the instant of solar noon
func (d SolarDay) SolarNoon() time.Time { return d.noon }

// SolarMidnight returns the solar midnight anchoring this day's solar time
func (d SolarDay) SolarMidnight() time.Time { return d.midnight }

// SolarTime converts an instant to fractional solar hours in [0, 24), with
// solar noon at 12. Without landmarks it returns the civil clock hour.
func (d SolarDay) SolarTime(now time.Time) float64 {
	if !d.valid {
		return clockHour(now)
	}
	return wrap24(now.Sub(d.midnight).Hours())
}

// SunPosition is a smooth day/night indicator in [-1, 1], +1 at solar noon
// and -1 at solar midnight.
func (d SolarDay) SunPosition(now time.Time) float64 {
	return -math.Cos(2 * math.Pi * d.SolarTime(now) / 24)
}

// SunTimes returns the landmarks in solar-hour coordinates, matching the
// output of SolarTime. Missing sunrise/sunset fall back to the defaults.
func (d SolarDay) SunTimes() SunTimes {
	st := DefaultSunTimes()
	if !d.valid {
		return st
	}
	st.SolarNoon = d.SolarTime(d.noon)
	st.SolarMid = 0
	if d.hasSunrise {
		st.Sunrise = d.SolarTime(d.sunrise)
	}
	if d.hasSunset {
		st.Sunset = d.SolarTime(d.sunset)
	}
	return st
}

// LocalSunTimes returns the landmarks as local clock hours
func (d SolarDay) LocalSunTimes() SunTimes {
	st := DefaultSunTimes()
	if !d.valid {
		return st
	}
	st.SolarNoon = clockHour(d.noon)
	st.SolarMid = clockHour(d.midnight)
	if d.hasSunrise {
		st.Sunrise = clockHour(d.sunrise)
	}
	if d.hasSunset {
		st.Sunset = clockHour(d.sunset)
	}
	return st
}

func clockHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600 + float64(t.Nanosecond())/3.6e12
}

func wrap24(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	if h >= 24 {
		h = 0
	}
	return h
}
