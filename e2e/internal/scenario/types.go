package scenario

import "time"

// Scenario is one end-to-end run against live circadian agents
type Scenario struct {
	Name         string                   `yaml:"name" json:"name"`
	Description  string                   `yaml:"description" json:"description"`
	Setup        SetupConfig              `yaml:"setup" json:"setup"`
	Events       []Event                  `yaml:"events" json:"events"`
	Wait         []WaitPeriod             `yaml:"wait" json:"wait,omitempty"`
	Expectations map[string][]Expectation `yaml:"expectations" json:"expectations"`
}

// SetupConfig lists the areas the scenario drives and clears before it starts
type SetupConfig struct {
	Areas []string `yaml:"areas" json:"areas"`
	// Outdoor lux location, defaults to "outdoor"
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
}

// OutdoorLocation returns the configured lux location or the default
func (s SetupConfig) OutdoorLocation() string {
	if s.Location == "" {
		return "outdoor"
	}
	return s.Location
}

// Event is a message published at Time seconds after the start.
// Exactly one of Command, Lux or Weather is set.
type Event struct {
	Time        int                    `yaml:"time" json:"time"`
	Area        string                 `yaml:"area,omitempty" json:"area,omitempty"`
	Command     map[string]interface{} `yaml:"command,omitempty" json:"command,omitempty"`
	Lux         *float64               `yaml:"lux,omitempty" json:"lux,omitempty"`
	Weather     map[string]interface{} `yaml:"weather,omitempty" json:"weather,omitempty"`
	Description string                 `yaml:"description" json:"description"`
}

// Event categories
const (
	CategoryCommand = "command"
	CategoryLux     = "lux"
	CategoryWeather = "weather"
)

// Category reports which kind of message the event publishes
func (e *Event) Category() string {
	switch {
	case len(e.Command) > 0:
		return CategoryCommand
	case e.Lux != nil:
		return CategoryLux
	case len(e.Weather) > 0:
		return CategoryWeather
	}
	return ""
}

// WaitPeriod is a pause marker in the timeline
type WaitPeriod struct {
	Time        int    `yaml:"time" json:"time"`
	Description string `yaml:"description" json:"description"`
}

// Expectation is checked at Time seconds after the start against one of
// the MQTT capture, the Redis area state or the history database.
type Expectation struct {
	Time int `yaml:"time" json:"time"`

	// MQTT: the latest message on Topic must match Payload
	Topic   string                 `yaml:"topic,omitempty" json:"topic,omitempty"`
	Payload map[string]interface{} `yaml:"payload,omitempty" json:"payload,omitempty"`

	// Redis: HGET RedisKey RedisField, optionally decoded as JSON and
	// narrowed to JSONField, must match Expected
	RedisKey   string      `yaml:"redis_key,omitempty" json:"redis_key,omitempty"`
	RedisField string      `yaml:"redis_field,omitempty" json:"redis_field,omitempty"`
	JSONField  string      `yaml:"json_field,omitempty" json:"json_field,omitempty"`
	Expected   interface{} `yaml:"expected,omitempty" json:"expected,omitempty"`

	// Postgres: the single value returned by PostgresQuery must match
	PostgresQuery    string      `yaml:"postgres_query,omitempty" json:"postgres_query,omitempty"`
	PostgresExpected interface{} `yaml:"postgres_expected,omitempty" json:"postgres_expected,omitempty"`
}

// Kind reports which backend the expectation is checked against
func (e *Expectation) Kind() string {
	switch {
	case e.PostgresQuery != "":
		return "postgres"
	case e.RedisKey != "":
		return "redis"
	case e.Topic != "":
		return "mqtt"
	}
	return ""
}

// Describe returns a short label for timelines
func (e *Expectation) Describe() string {
	switch e.Kind() {
	case "postgres":
		return "postgres query"
	case "redis":
		if e.JSONField != "" {
			return e.RedisKey + " " + e.RedisField + "." + e.JSONField
		}
		return e.RedisKey + " " + e.RedisField
	}
	return e.Topic
}

// TestResult is the outcome of running a scenario
type TestResult struct {
	Scenario     *Scenario           `json:"scenario"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	Passed       bool                `json:"passed"`
	PassedCount  int                 `json:"passed_count"`
	FailedCount  int                 `json:"failed_count"`
	Expectations []ExpectationResult `json:"expectations"`
}

// ExpectationResult is the result of checking a single expectation
type ExpectationResult struct {
	Layer       string      `json:"layer"`
	Expectation Expectation `json:"expectation"`
	Passed      bool        `json:"passed"`
	Reason      string      `json:"reason,omitempty"`
	Actual      interface{} `json:"actual,omitempty"`
}
