package circadian

import "strings"

// Preset is a named wake/bed schedule. Custom carries no times and keeps
// whatever the profile sets.
type Preset struct {
	Name     string
	WakeTime *float64
	BedTime  *float64
}

func hours(h float64) *float64 { return &h }

var presets = map[string]Preset{
	"young":      {Name: "young", WakeTime: hours(6), BedTime: hours(18)},
	"adult":      {Name: "adult", WakeTime: hours(6), BedTime: hours(22)},
	"nightowl":   {Name: "nightowl", WakeTime: hours(10), BedTime: hours(2)},
	"duskbat":    {Name: "duskbat", WakeTime: hours(14), BedTime: hours(6)},
	"shiftearly": {Name: "shiftearly", WakeTime: hours(18), BedTime: hours(10)},
	"shiftlate":  {Name: "shiftlate", WakeTime: hours(22), BedTime: hours(14)},
	"custom":     {Name: "custom"},
}

// LookupPreset finds a preset by name, case-insensitively
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// PresetNames lists the known preset names
func PresetNames() []string {
	return []string{"young", "adult", "nightowl", "duskbat", "shiftearly", "shiftlate", "custom"}
}
