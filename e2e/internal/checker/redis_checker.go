package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

// HashReader is the part of redis.Client the state checker needs
type HashReader interface {
	HGet(ctx context.Context, key, field string) (string, error)
}

// CheckRedisExpectation reads a hash field and matches it against the
// expectation. JSON field values are decoded first, and JSONField selects
// one key of a decoded object.
func CheckRedisExpectation(ctx context.Context, client HashReader, exp scenario.Expectation) (bool, string, interface{}) {
	raw, err := client.HGet(ctx, exp.RedisKey, exp.RedisField)
	if errors.Is(err, redis.ErrNotFound) {
		return false, fmt.Sprintf("key %q field %q not found in Redis", exp.RedisKey, exp.RedisField), nil
	}
	if err != nil {
		return false, fmt.Sprintf("Redis error: %v", err), nil
	}

	var value interface{} = raw
	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		value = decoded
	}

	if exp.JSONField != "" {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return false, fmt.Sprintf("field %q is not a JSON object", exp.RedisField), raw
		}
		v, exists := obj[exp.JSONField]
		if !exists {
			return false, fmt.Sprintf("JSON key %q not present", exp.JSONField), obj
		}
		value = v
	}

	if ok, reason := MatchesExpectation(value, exp.Expected); !ok {
		return false, reason, value
	}

	return true, "", value
}
