package checker

import (
	"fmt"

	"github.com/saaga0h/circadian-platform/e2e/internal/observer"
	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
)

// CheckExpectation matches the latest captured message on the expected
// topic against the expected payload
func CheckExpectation(exp scenario.Expectation, messages []observer.CapturedMessage) (bool, string, interface{}) {
	var latest *observer.CapturedMessage
	for i := range messages {
		if messages[i].Topic == exp.Topic {
			latest = &messages[i]
		}
	}

	if latest == nil {
		return false, fmt.Sprintf("no messages found for topic %q", exp.Topic), nil
	}

	payload, ok := latest.Payload.(map[string]interface{})
	if !ok {
		return false, fmt.Sprintf("payload is not a JSON object, got %T", latest.Payload), latest.Payload
	}

	if ok, reason := MatchesExpectation(payload, exp.Payload); !ok {
		return false, reason, latest.Payload
	}

	return true, "", latest.Payload
}
