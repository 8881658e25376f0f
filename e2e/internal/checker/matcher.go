package checker

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// approxTolerance is the relative tolerance of the "~N" matcher
const approxTolerance = 0.2

// MatchesExpectation reports whether actual satisfies expected.
//
// String expectations may use matchers:
//
//	~pattern~  regular expression against the formatted value
//	~N         number within 20% of N
//	lo..hi     number in the closed range
//	>N >=N <N <=N
//
// Maps match when every expected key matches; extra actual keys are ignored.
// Numbers compare across int and float types.
func MatchesExpectation(actual, expected interface{}) (bool, string) {
	if expected == nil || actual == nil {
		if expected == nil && actual == nil {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v, got %v", expected, actual)
	}

	if s, ok := expected.(string); ok {
		if ok, reason, handled := matchString(actual, s); handled {
			return ok, reason
		}
	}

	if isNumber(expected) {
		a, err := toFloat64(actual)
		if err != nil {
			return false, fmt.Sprintf("expected number %v, got %T", expected, actual)
		}
		e, _ := toFloat64(expected)
		if a == e {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v, got %v", expected, actual)
	}

	switch ev := expected.(type) {
	case map[string]interface{}:
		return matchMap(actual, ev)
	case []interface{}:
		return matchSlice(actual, ev)
	}

	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v (%T), got %v (%T)", expected, expected, actual, actual)
}

// matchString handles matcher syntax; handled is false for plain strings
// that should fall through to equality.
func matchString(actual interface{}, expected string) (ok bool, reason string, handled bool) {
	switch {
	case len(expected) > 1 && strings.HasPrefix(expected, "~") && strings.HasSuffix(expected, "~"):
		ok, reason = matchRegex(actual, strings.Trim(expected, "~"))
		return ok, reason, true

	case strings.HasPrefix(expected, "~"):
		if target, err := strconv.ParseFloat(expected[1:], 64); err == nil {
			ok, reason = matchApprox(actual, target)
			return ok, reason, true
		}

	case strings.HasPrefix(expected, ">") || strings.HasPrefix(expected, "<"):
		ok, reason = matchComparison(actual, expected)
		return ok, reason, true

	case strings.Contains(expected, ".."):
		parts := strings.SplitN(expected, "..", 2)
		lo, errLo := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		hi, errHi := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLo == nil && errHi == nil {
			ok, reason = matchRange(actual, lo, hi)
			return ok, reason, true
		}
	}

	if a, isStr := actual.(string); isStr {
		if a == expected {
			return true, "", true
		}
		return false, fmt.Sprintf("expected %q, got %q", expected, a), true
	}
	return false, fmt.Sprintf("expected %q, got %v (%T)", expected, actual, actual), true
}

func matchRegex(actual interface{}, pattern string) (bool, string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern %q: %v", pattern, err)
	}

	s := fmt.Sprintf("%v", actual)
	if re.MatchString(s) {
		return true, ""
	}
	return false, fmt.Sprintf("value %q does not match pattern ~%s~", s, pattern)
}

func matchApprox(actual interface{}, target float64) (bool, string) {
	a, err := toFloat64(actual)
	if err != nil {
		return false, fmt.Sprintf("cannot compare non-numeric value: %v", actual)
	}

	tolerance := target * approxTolerance
	if tolerance < 0 {
		tolerance = -tolerance
	}
	if a >= target-tolerance && a <= target+tolerance {
		return true, ""
	}
	return false, fmt.Sprintf("value %v not within ±20%% of %v", a, target)
}

func matchRange(actual interface{}, lo, hi float64) (bool, string) {
	a, err := toFloat64(actual)
	if err != nil {
		return false, fmt.Sprintf("cannot compare non-numeric value: %v", actual)
	}
	if a >= lo && a <= hi {
		return true, ""
	}
	return false, fmt.Sprintf("value %v outside %v..%v", a, lo, hi)
}

func matchComparison(actual interface{}, comparison string) (bool, string) {
	a, err := toFloat64(actual)
	if err != nil {
		return false, fmt.Sprintf("cannot compare non-numeric value: %v", actual)
	}

	op := comparison[:1]
	if strings.HasPrefix(comparison[1:], "=") {
		op = comparison[:2]
	}

	want, err := strconv.ParseFloat(strings.TrimSpace(comparison[len(op):]), 64)
	if err != nil {
		return false, fmt.Sprintf("invalid comparison value: %s", comparison)
	}

	var ok bool
	switch op {
	case ">":
		ok = a > want
	case ">=":
		ok = a >= want
	case "<":
		ok = a < want
	case "<=":
		ok = a <= want
	}

	if ok {
		return true, ""
	}
	return false, fmt.Sprintf("expected value %s %v, got %v", op, want, a)
}

func matchMap(actual interface{}, expected map[string]interface{}) (bool, string) {
	am, ok := actual.(map[string]interface{})
	if !ok {
		return false, fmt.Sprintf("expected object, got %T", actual)
	}

	for key, ev := range expected {
		av, exists := am[key]
		if !exists {
			return false, fmt.Sprintf("missing key %q", key)
		}
		if ok, reason := MatchesExpectation(av, ev); !ok {
			return false, fmt.Sprintf("key %q: %s", key, reason)
		}
	}
	return true, ""
}

func matchSlice(actual interface{}, expected []interface{}) (bool, string) {
	as, ok := actual.([]interface{})
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	if len(as) != len(expected) {
		return false, fmt.Sprintf("expected array length %d, got %d", len(expected), len(as))
	}

	for i := range expected {
		if ok, reason := MatchesExpectation(as[i], expected[i]); !ok {
			return false, fmt.Sprintf("element %d: %s", i, reason)
		}
	}
	return true, ""
}

func isNumber(v interface{}) bool {
	_, err := toFloat64(v)
	return err == nil
}

// toFloat64 converts JSON, YAML and database numeric values to float64
func toFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("not a numeric type: %T", val)
}
