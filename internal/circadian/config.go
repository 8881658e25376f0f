package circadian

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMinBrightness = 1
	DefaultMaxBrightness = 100
	DefaultMinColorTemp  = 500
	DefaultMaxColorTemp  = 6500
	DefaultMaxDimSteps   = 10

	DefaultAscendStart  = 0.0
	DefaultDescendStart = 12.0
	DefaultWakeTime     = 6.0
	DefaultBedTime      = 22.0
	DefaultWakeSpeed    = 8
	DefaultBedSpeed     = 6

	DefaultColorSensitivity = 1.0
)

// Absolute limits a profile may never exceed
const (
	AbsoluteMinColorTemp = 500
	AbsoluteMaxColorTemp = 10000
	MaxDimStepsLimit     = 500
)

var (
	ErrInvalidConfig    = errors.New("invalid circadian config")
	ErrMissingLocation  = errors.New("latitude and longitude are required")
	ErrUnknownAxis      = errors.New("unknown axis")
	ErrUnknownDirection = errors.New("unknown direction")
)

// RuleMode selects which part of a solar rule window is used
type RuleMode string

const (
	RuleModeAll     RuleMode = "all"
	RuleModeSunrise RuleMode = "sunrise"
	RuleModeSunset  RuleMode = "sunset"
)

// SolarRule is a color temperature clamp active within a window anchored
// on sunrise/sunset. Offsets and fade are minutes.
type SolarRule struct {
	Enabled     bool
	Mode        RuleMode
	Target      int
	StartOffset int
	EndOffset   int
	Fade        int
}

// Config is the fully-defaulted lighting profile consumed by every engine call
type Config struct {
	MinColorTemp  int
	MaxColorTemp  int
	MinBrightness int
	MaxBrightness int

	AscendStart  float64
	DescendStart float64
	WakeTime     float64
	BedTime      float64
	WakeSpeed    int
	BedSpeed     int

	WarmNight SolarRule
	CoolDay   SolarRule

	DaylightCCT      int
	ColorSensitivity float64

	ActivityPreset string
	MaxDimSteps    int
}

// DefaultConfig returns a Config with every field at its documented default
func DefaultConfig() Config {
	return Config{
		MinColorTemp:  DefaultMinColorTemp,
		MaxColorTemp:  DefaultMaxColorTemp,
		MinBrightness: DefaultMinBrightness,
		MaxBrightness: DefaultMaxBrightness,
		AscendStart:   DefaultAscendStart,
		DescendStart:  DefaultDescendStart,
		WakeTime:      DefaultWakeTime,
		BedTime:       DefaultBedTime,
		WakeSpeed:     DefaultWakeSpeed,
		BedSpeed:      DefaultBedSpeed,
		WarmNight: SolarRule{
			Mode:        RuleModeAll,
			Target:      2700,
			StartOffset: -60,
			EndOffset:   60,
			Fade:        60,
		},
		CoolDay: SolarRule{
			Mode:   RuleModeAll,
			Target: 6500,
			Fade:   60,
		},
		ColorSensitivity: DefaultColorSensitivity,
		MaxDimSteps:      DefaultMaxDimSteps,
	}
}

// Validate checks ranges and orderings of the profile
func (c Config) Validate() error {
	if c.MinBrightness < 0 || c.MaxBrightness > 100 || c.MinBrightness >= c.MaxBrightness {
		return fmt.Errorf("%w: brightness bounds must satisfy 0 <= min < max <= 100 (got %d..%d)",
			ErrInvalidConfig, c.MinBrightness, c.MaxBrightness)
	}
	if c.MinColorTemp < AbsoluteMinColorTemp || c.MaxColorTemp > AbsoluteMaxColorTemp || c.MinColorTemp >= c.MaxColorTemp {
		return fmt.Errorf("%w: color temperature bounds must satisfy %d <= min < max <= %d (got %d..%d)",
			ErrInvalidConfig, AbsoluteMinColorTemp, AbsoluteMaxColorTemp, c.MinColorTemp, c.MaxColorTemp)
	}
	for name, h := range map[string]float64{
		"ascend_start":  c.AscendStart,
		"descend_start": c.DescendStart,
		"wake_time":     c.WakeTime,
		"bed_time":      c.BedTime,
	} {
		if h < 0 || h >= 24 {
			return fmt.Errorf("%w: %s must be within [0, 24) (got %.2f)", ErrInvalidConfig, name, h)
		}
	}
	if c.AscendStart == c.DescendStart {
		return fmt.Errorf("%w: ascend_start and descend_start must differ", ErrInvalidConfig)
	}
	if c.WakeSpeed < 1 || c.WakeSpeed > 10 || c.BedSpeed < 1 || c.BedSpeed > 10 {
		return fmt.Errorf("%w: wake_speed and bed_speed must be within 1-10", ErrInvalidConfig)
	}
	if c.MaxDimSteps < 1 || c.MaxDimSteps > MaxDimStepsLimit {
		return fmt.Errorf("%w: max_dim_steps must be within 1-%d (got %d)", ErrInvalidConfig, MaxDimStepsLimit, c.MaxDimSteps)
	}
	if err := c.WarmNight.validate("warm_night"); err != nil {
		return err
	}
	if err := c.CoolDay.validate("cool_day"); err != nil {
		return err
	}
	if c.DaylightCCT != 0 && (c.DaylightCCT < minXYKelvin || c.DaylightCCT > maxXYKelvin) {
		return fmt.Errorf("%w: daylight_cct must be 0 or within %d-%d", ErrInvalidConfig, minXYKelvin, maxXYKelvin)
	}
	if c.ColorSensitivity < 0 {
		return fmt.Errorf("%w: color_sensitivity must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (r SolarRule) validate(name string) error {
	switch r.Mode {
	case RuleModeAll, RuleModeSunrise, RuleModeSunset:
	default:
		return fmt.Errorf("%w: %s_mode must be all, sunrise or sunset (got %q)", ErrInvalidConfig, name, r.Mode)
	}
	if r.Fade < 0 {
		return fmt.Errorf("%w: %s_fade must not be negative", ErrInvalidConfig, name)
	}
	if r.Target < AbsoluteMinColorTemp || r.Target > AbsoluteMaxColorTemp {
		return fmt.Errorf("%w: %s_target out of range (got %d)", ErrInvalidConfig, name, r.Target)
	}
	return nil
}

// rawConfig mirrors the flat key mapping. Nil fields fall back to defaults.
type rawConfig struct {
	MinColorTemp  *int `yaml:"min_color_temp"`
	MaxColorTemp  *int `yaml:"max_color_temp"`
	MinBrightness *int `yaml:"min_brightness"`
	MaxBrightness *int `yaml:"max_brightness"`

	AscendStart  *float64 `yaml:"ascend_start"`
	DescendStart *float64 `yaml:"descend_start"`
	WakeTime     *float64 `yaml:"wake_time"`
	BedTime      *float64 `yaml:"bed_time"`
	WakeSpeed    *int     `yaml:"wake_speed"`
	BedSpeed     *int     `yaml:"bed_speed"`

	WarmNightEnabled *bool   `yaml:"warm_night_enabled"`
	WarmNightMode    *string `yaml:"warm_night_mode"`
	WarmNightTarget  *int    `yaml:"warm_night_target"`
	WarmNightStart   *int    `yaml:"warm_night_start"`
	WarmNightEnd     *int    `yaml:"warm_night_end"`
	WarmNightFade    *int    `yaml:"warm_night_fade"`

	CoolDayEnabled *bool   `yaml:"cool_day_enabled"`
	CoolDayMode    *string `yaml:"cool_day_mode"`
	CoolDayTarget  *int    `yaml:"cool_day_target"`
	CoolDayStart   *int    `yaml:"cool_day_start"`
	CoolDayEnd     *int    `yaml:"cool_day_end"`
	CoolDayFade    *int    `yaml:"cool_day_fade"`

	DaylightCCT      *int     `yaml:"daylight_cct"`
	ColorSensitivity *float64 `yaml:"color_sensitivity"`
	ActivityPreset   *string  `yaml:"activity_preset"`
	MaxDimSteps      *int     `yaml:"max_dim_steps"`
}

func (r rawConfig) resolve() (Config, error) {
	cfg := DefaultConfig()

	if r.ActivityPreset != nil {
		preset, ok := LookupPreset(*r.ActivityPreset)
		if !ok {
			return Config{}, fmt.Errorf("%w: unknown activity_preset %q", ErrInvalidConfig, *r.ActivityPreset)
		}
		cfg.ActivityPreset = preset.Name
		if preset.WakeTime != nil {
			cfg.WakeTime = *preset.WakeTime
		}
		if preset.BedTime != nil {
			cfg.BedTime = *preset.BedTime
		}
	}

	setInt(&cfg.MinColorTemp, r.MinColorTemp)
	setInt(&cfg.MaxColorTemp, r.MaxColorTemp)
	setInt(&cfg.MinBrightness, r.MinBrightness)
	setInt(&cfg.MaxBrightness, r.MaxBrightness)

	setFloat(&cfg.AscendStart, r.AscendStart)
	setFloat(&cfg.DescendStart, r.DescendStart)
	setFloat(&cfg.WakeTime, r.WakeTime)
	setFloat(&cfg.BedTime, r.BedTime)
	setInt(&cfg.WakeSpeed, r.WakeSpeed)
	setInt(&cfg.BedSpeed, r.BedSpeed)

	setBool(&cfg.WarmNight.Enabled, r.WarmNightEnabled)
	setMode(&cfg.WarmNight.Mode, r.WarmNightMode)
	setInt(&cfg.WarmNight.Target, r.WarmNightTarget)
	setInt(&cfg.WarmNight.StartOffset, r.WarmNightStart)
	setInt(&cfg.WarmNight.EndOffset, r.WarmNightEnd)
	setInt(&cfg.WarmNight.Fade, r.WarmNightFade)

	setBool(&cfg.CoolDay.Enabled, r.CoolDayEnabled)
	setMode(&cfg.CoolDay.Mode, r.CoolDayMode)
	setInt(&cfg.CoolDay.Target, r.CoolDayTarget)
	setInt(&cfg.CoolDay.StartOffset, r.CoolDayStart)
	setInt(&cfg.CoolDay.EndOffset, r.CoolDayEnd)
	setInt(&cfg.CoolDay.Fade, r.CoolDayFade)

	setInt(&cfg.DaylightCCT, r.DaylightCCT)
	setFloat(&cfg.ColorSensitivity, r.ColorSensitivity)
	setInt(&cfg.MaxDimSteps, r.MaxDimSteps)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setMode(dst *RuleMode, v *string) {
	if v != nil {
		*dst = RuleMode(*v)
	}
}

// ParseConfig builds a Config from a flat YAML document. Missing keys take
// their defaults.
func ParseConfig(data []byte) (Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse circadian config: %w", err)
	}
	return raw.resolve()
}

// ConfigFromMap builds a Config from a flat key/value mapping such as one
// received from a settings UI.
func ConfigFromMap(values map[string]interface{}) (Config, error) {
	data, err := yaml.Marshal(values)
	if err != nil {
		return Config{}, fmt.Errorf("failed to encode config map: %w", err)
	}
	return ParseConfig(data)
}

// Profiles holds the default lighting profile and per-area variants
type Profiles struct {
	Default Config
	Areas   map[string]Config
}

// For returns the profile for an area, falling back to the default profile
func (p Profiles) For(area string) Config {
	if cfg, ok := p.Areas[area]; ok {
		return cfg
	}
	return p.Default
}

// ParseProfiles parses a profile document: the top-level flat keys form the
// default profile and the optional "areas" map holds per-area key overrides
// applied on top of it.
func ParseProfiles(data []byte) (Profiles, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Profiles{}, fmt.Errorf("failed to parse profile document: %w", err)
	}

	var base rawConfig
	if len(root.Content) > 0 {
		if err := root.Decode(&base); err != nil {
			return Profiles{}, fmt.Errorf("failed to decode default profile: %w", err)
		}
	}
	def, err := base.resolve()
	if err != nil {
		return Profiles{}, fmt.Errorf("default profile: %w", err)
	}

	profiles := Profiles{Default: def, Areas: make(map[string]Config)}
	if len(root.Content) == 0 {
		return profiles, nil
	}

	var doc struct {
		Areas map[string]yaml.Node `yaml:"areas"`
	}
	if err := root.Decode(&doc); err != nil {
		return Profiles{}, fmt.Errorf("failed to decode area profiles: %w", err)
	}

	for area, node := range doc.Areas {
		// Decode base then area into a fresh struct so pointers are not shared
		var raw rawConfig
		if err := root.Decode(&raw); err != nil {
			return Profiles{}, fmt.Errorf("failed to decode profile for area %s: %w", area, err)
		}
		if err := node.Decode(&raw); err != nil {
			return Profiles{}, fmt.Errorf("failed to decode profile for area %s: %w", area, err)
		}
		cfg, err := raw.resolve()
		if err != nil {
			return Profiles{}, fmt.Errorf("area %s: %w", area, err)
		}
		profiles.Areas[area] = cfg
	}

	return profiles, nil
}

// LoadConfigFile reads a single flat profile file
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// LoadProfiles reads and parses a profile file
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}
	return ParseProfiles(data)
}
