package circadian

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.MinColorTemp)
	assert.Equal(t, 6500, cfg.MaxColorTemp)
	assert.Equal(t, 1, cfg.MinBrightness)
	assert.Equal(t, 100, cfg.MaxBrightness)
	assert.Equal(t, 10, cfg.MaxDimSteps)
	assert.False(t, cfg.WarmNight.Enabled)
	assert.False(t, cfg.CoolDay.Enabled)
}

func TestParseConfig_EmptyUsesDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig_FlatKeys(t *testing.T) {
	doc := []byte(`
min_color_temp: 2200
max_color_temp: 5000
min_brightness: 5
wake_time: 7.5
bed_speed: 3
warm_night_enabled: true
warm_night_mode: sunset
warm_night_target: 2400
cool_day_enabled: true
cool_day_fade: 30
daylight_cct: 5500
color_sensitivity: 0.5
max_dim_steps: 20
`)
	cfg, err := ParseConfig(doc)
	require.NoError(t, err)

	assert.Equal(t, 2200, cfg.MinColorTemp)
	assert.Equal(t, 5000, cfg.MaxColorTemp)
	assert.Equal(t, 5, cfg.MinBrightness)
	assert.Equal(t, 100, cfg.MaxBrightness)
	assert.Equal(t, 7.5, cfg.WakeTime)
	assert.Equal(t, 3, cfg.BedSpeed)
	assert.True(t, cfg.WarmNight.Enabled)
	assert.Equal(t, RuleModeSunset, cfg.WarmNight.Mode)
	assert.Equal(t, 2400, cfg.WarmNight.Target)
	assert.Equal(t, -60, cfg.WarmNight.StartOffset)
	assert.True(t, cfg.CoolDay.Enabled)
	assert.Equal(t, 30, cfg.CoolDay.Fade)
	assert.Equal(t, 5500, cfg.DaylightCCT)
	assert.Equal(t, 0.5, cfg.ColorSensitivity)
	assert.Equal(t, 20, cfg.MaxDimSteps)
}

func TestConfigFromMap_Presets(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]interface{}{"activity_preset": "duskbat"})
	require.NoError(t, err)
	assert.Equal(t, 14.0, cfg.WakeTime)
	assert.Equal(t, 6.0, cfg.BedTime)
	assert.Equal(t, "duskbat", cfg.ActivityPreset)

	// Explicit keys beat the preset
	cfg, err = ConfigFromMap(map[string]interface{}{"activity_preset": "young", "bed_time": 19.5})
	require.NoError(t, err)
	assert.Equal(t, 6.0, cfg.WakeTime)
	assert.Equal(t, 19.5, cfg.BedTime)

	// Custom keeps the defaults
	cfg, err = ConfigFromMap(map[string]interface{}{"activity_preset": "custom"})
	require.NoError(t, err)
	assert.Equal(t, DefaultWakeTime, cfg.WakeTime)
	assert.Equal(t, DefaultBedTime, cfg.BedTime)
}

func TestConfigFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{"unknown preset", map[string]interface{}{"activity_preset": "vampire"}},
		{"inverted color range", map[string]interface{}{"min_color_temp": 6000, "max_color_temp": 3000}},
		{"inverted brightness", map[string]interface{}{"min_brightness": 80, "max_brightness": 20}},
		{"zero steps", map[string]interface{}{"max_dim_steps": 0}},
		{"too many steps", map[string]interface{}{"max_dim_steps": 501}},
		{"bad mode", map[string]interface{}{"cool_day_mode": "noon"}},
		{"hour out of range", map[string]interface{}{"wake_time": 24}},
		{"same phase starts", map[string]interface{}{"ascend_start": 6, "descend_start": 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFromMap(tt.values)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestParseConfig_BadYAML(t *testing.T) {
	_, err := ParseConfig([]byte("min_color_temp: [oops"))
	assert.Error(t, err)
}

func TestParseProfiles_AreaOverrides(t *testing.T) {
	doc := []byte(`
max_brightness: 90
warm_night_enabled: true
areas:
  kitchen:
    max_brightness: 100
  bedroom:
    activity_preset: nightowl
    warm_night_target: 2200
`)
	profiles, err := ParseProfiles(doc)
	require.NoError(t, err)

	assert.Equal(t, 90, profiles.Default.MaxBrightness)
	assert.True(t, profiles.Default.WarmNight.Enabled)

	kitchen := profiles.For("kitchen")
	assert.Equal(t, 100, kitchen.MaxBrightness)
	assert.True(t, kitchen.WarmNight.Enabled)

	bedroom := profiles.For("bedroom")
	assert.Equal(t, 90, bedroom.MaxBrightness)
	assert.Equal(t, 10.0, bedroom.WakeTime)
	assert.Equal(t, 2200, bedroom.WarmNight.Target)

	assert.Equal(t, profiles.Default, profiles.For("garage"))
}

func TestLoadProfiles_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_brightness: 3\n"), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, 3, profiles.Default.MinBrightness)
	assert.Empty(t, profiles.Areas)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MinBrightness)

	_, err = LoadProfiles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLookupPreset(t *testing.T) {
	p, ok := LookupPreset("NightOwl")
	require.True(t, ok)
	assert.Equal(t, "nightowl", p.Name)

	_, ok = LookupPreset("nope")
	assert.False(t, ok)
	assert.Len(t, PresetNames(), 7)
}
