package scenario

import (
	"fmt"
)

// ValidateScenario performs validation checks on a loaded scenario
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("scenario description is required")
	}

	if len(s.Setup.Areas) == 0 {
		return fmt.Errorf("setup.areas requires at least one area")
	}

	if err := validateEvents(s.Events, s.Setup.Areas); err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	if err := validateWaitPeriods(s.Wait); err != nil {
		return fmt.Errorf("wait periods validation failed: %w", err)
	}

	if err := validateExpectations(s.Expectations); err != nil {
		return fmt.Errorf("expectations validation failed: %w", err)
	}

	return nil
}

func validateEvents(events []Event, areas []string) error {
	if len(events) == 0 {
		return fmt.Errorf("at least one event is required")
	}

	known := make(map[string]bool, len(areas))
	for _, area := range areas {
		known[area] = true
	}

	for i, event := range events {
		if event.Time < 0 {
			return fmt.Errorf("event %d: time cannot be negative", i)
		}

		if event.Description == "" {
			return fmt.Errorf("event %d: description is required", i)
		}

		set := 0
		if len(event.Command) > 0 {
			set++
		}
		if event.Lux != nil {
			set++
		}
		if len(event.Weather) > 0 {
			set++
		}
		if set != 1 {
			return fmt.Errorf("event %d: exactly one of 'command', 'lux' or 'weather' is required", i)
		}

		switch event.Category() {
		case CategoryCommand:
			if !known[event.Area] {
				return fmt.Errorf("event %d: area %q is not listed in setup.areas", i, event.Area)
			}
			if action, _ := event.Command["action"].(string); action == "" {
				return fmt.Errorf("event %d: command requires an 'action'", i)
			}
		case CategoryLux:
			if *event.Lux < 0 {
				return fmt.Errorf("event %d: lux cannot be negative", i)
			}
		}
	}

	return nil
}

func validateWaitPeriods(waits []WaitPeriod) error {
	for i, wait := range waits {
		if wait.Time < 0 {
			return fmt.Errorf("wait period %d: time cannot be negative", i)
		}

		if wait.Description == "" {
			return fmt.Errorf("wait period %d: description is required", i)
		}
	}

	return nil
}

func validateExpectations(expectations map[string][]Expectation) error {
	if len(expectations) == 0 {
		return fmt.Errorf("at least one expectation is required")
	}

	for layer, exps := range expectations {
		if layer == "" {
			return fmt.Errorf("expectation layer name cannot be empty")
		}

		for i, exp := range exps {
			if exp.Time < 0 {
				return fmt.Errorf("layer %s, expectation %d: time cannot be negative", layer, i)
			}

			switch exp.Kind() {
			case "mqtt":
				if len(exp.Payload) == 0 {
					return fmt.Errorf("layer %s, expectation %d: topic expectations require a payload", layer, i)
				}
			case "redis":
				if exp.RedisField == "" {
					return fmt.Errorf("layer %s, expectation %d: redis_field is required when redis_key is specified", layer, i)
				}
				if exp.Expected == nil {
					return fmt.Errorf("layer %s, expectation %d: expected is required when redis_key is specified", layer, i)
				}
			case "postgres":
				if exp.PostgresExpected == nil {
					return fmt.Errorf("layer %s, expectation %d: postgres_expected is required when postgres_query is specified", layer, i)
				}
			default:
				return fmt.Errorf("layer %s, expectation %d: one of topic, redis_key or postgres_query is required", layer, i)
			}
		}
	}

	return nil
}
