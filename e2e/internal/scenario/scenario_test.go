package scenario

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
name: minimal
description: one command, one check
setup:
  areas: [office]
events:
  - time: 0
    area: office
    command: {action: "on"}
    description: lights on
expectations:
  light:
    - time: 1
      topic: automation/command/light/office
      payload: {action: "on"}
`

func TestLoadScenarioFromBytes(t *testing.T) {
	s, err := LoadScenarioFromBytes([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "outdoor", s.Setup.OutdoorLocation())
	require.Len(t, s.Events, 1)
	assert.Equal(t, CategoryCommand, s.Events[0].Category())
	assert.Equal(t, "on", s.Events[0].Command["action"])

	exp := s.Expectations["light"][0]
	assert.Equal(t, "mqtt", exp.Kind())
	assert.Equal(t, "automation/command/light/office", exp.Describe())
}

func TestLoadScenario_BundledScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEventCategory(t *testing.T) {
	lux := 120.0
	assert.Equal(t, CategoryLux, (&Event{Lux: &lux}).Category())
	assert.Equal(t, CategoryWeather, (&Event{Weather: map[string]interface{}{"cloud_cover": 50}}).Category())
	assert.Equal(t, "", (&Event{}).Category())
}

func TestValidateScenario_Rejects(t *testing.T) {
	base := func() *Scenario {
		s, err := LoadScenarioFromBytes([]byte(minimal))
		require.NoError(t, err)
		return s
	}
	lux := -1.0

	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"no name", func(s *Scenario) { s.Name = "" }},
		{"no areas", func(s *Scenario) { s.Setup.Areas = nil }},
		{"no events", func(s *Scenario) { s.Events = nil }},
		{"unknown area", func(s *Scenario) { s.Events[0].Area = "garage" }},
		{"command without action", func(s *Scenario) { s.Events[0].Command = map[string]interface{}{"hour": 12} }},
		{"two payload kinds", func(s *Scenario) { v := 10.0; s.Events[0].Lux = &v }},
		{"negative lux", func(s *Scenario) { s.Events[0].Command = nil; s.Events[0].Lux = &lux }},
		{"negative wait", func(s *Scenario) { s.Wait = []WaitPeriod{{Time: -1, Description: "x"}} }},
		{"no expectations", func(s *Scenario) { s.Expectations = nil }},
		{"topic without payload", func(s *Scenario) { s.Expectations["light"][0].Payload = nil }},
		{"redis without field", func(s *Scenario) {
			s.Expectations["state"] = []Expectation{{RedisKey: "circadian:area:office", Expected: true}}
		}},
		{"postgres without expected", func(s *Scenario) {
			s.Expectations["history"] = []Expectation{{PostgresQuery: "SELECT 1"}}
		}},
		{"empty expectation", func(s *Scenario) { s.Expectations["light"][0] = Expectation{Time: 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			assert.Error(t, ValidateScenario(s))
		})
	}
}
