package checker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/saaga0h/circadian-platform/e2e/internal/observer"
	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
	"github.com/saaga0h/circadian-platform/pkg/postgres"
	"github.com/saaga0h/circadian-platform/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesExpectation(t *testing.T) {
	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
		want     bool
	}{
		{"equal strings", "on", "on", true},
		{"different strings", "off", "on", false},
		{"int vs float", 99.0, 99, true},
		{"int64 vs int", int64(3), 3, true},
		{"number vs string", "99", 99, false},
		{"bool", true, true, true},
		{"bool mismatch", false, true, false},
		{"regex", "circadian_refresh", "~^circadian_~", true},
		{"regex miss", "manual", "~^circadian_~", false},
		{"regex on number", 6499.0, "~^64~", true},
		{"approx inside", 11.0, "~10", true},
		{"approx outside", 13.0, "~10", false},
		{"range inside", 90.0, "85..95", true},
		{"range outside", 99.0, "85..95", false},
		{"greater", 100.0, ">99", true},
		{"greater or equal", 99.0, ">=99", true},
		{"less fails", 99.0, "<95", false},
		{"less or equal", 95.0, "<=95", true},
		{"comparison on string", "x", ">1", false},
		{"nil both", nil, nil, true},
		{"nil actual", nil, "on", false},
		{
			"nested map ignores extra keys",
			map[string]interface{}{"brightness": 90.0, "reason": "manual", "rgb": []interface{}{255.0, 200.0, 150.0}},
			map[string]interface{}{"brightness": "<95", "reason": "manual"},
			true,
		},
		{
			"missing key",
			map[string]interface{}{"brightness": 90.0},
			map[string]interface{}{"color_temp": 6499},
			false,
		},
		{"slice", []interface{}{1.0, 2.0}, []interface{}{1, 2}, true},
		{"slice length", []interface{}{1.0}, []interface{}{1, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := MatchesExpectation(tt.actual, tt.expected)
			assert.Equal(t, tt.want, got, reason)
			if !tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestCheckExpectation_UsesLatestMessage(t *testing.T) {
	topic := "automation/command/light/office"
	messages := []observer.CapturedMessage{
		{Topic: topic, Payload: map[string]interface{}{"brightness": 99.0}},
		{Topic: "automation/context/lighting/office", Payload: map[string]interface{}{"brightness": 10.0}},
		{Topic: topic, Payload: map[string]interface{}{"brightness": 90.0}},
	}

	ok, reason, actual := CheckExpectation(scenario.Expectation{
		Topic:   topic,
		Payload: map[string]interface{}{"brightness": 90},
	}, messages)
	assert.True(t, ok, reason)
	assert.Equal(t, map[string]interface{}{"brightness": 90.0}, actual)

	ok, reason, _ = CheckExpectation(scenario.Expectation{
		Topic:   "automation/command/light/hall",
		Payload: map[string]interface{}{"brightness": 90},
	}, messages)
	assert.False(t, ok)
	assert.Contains(t, reason, "no messages")
}

type stubHash map[string]string

func (s stubHash) HGet(_ context.Context, key, field string) (string, error) {
	if v, ok := s[key+"/"+field]; ok {
		return v, nil
	}
	return "", fmt.Errorf("hash field %s:%s: %w", key, field, redis.ErrNotFound)
}

func TestCheckRedisExpectation(t *testing.T) {
	ctx := context.Background()
	client := stubHash{
		"circadian:area:office/state": `{"is_circadian":true,"is_on":true,"frozen_at":12}`,
		"circadian:area:office/label": `office lights`,
	}

	ok, reason, actual := CheckRedisExpectation(ctx, client, scenario.Expectation{
		RedisKey: "circadian:area:office", RedisField: "state", JSONField: "frozen_at", Expected: 12,
	})
	assert.True(t, ok, reason)
	assert.Equal(t, 12.0, actual)

	ok, reason, _ = CheckRedisExpectation(ctx, client, scenario.Expectation{
		RedisKey: "circadian:area:office", RedisField: "state",
		Expected: map[string]interface{}{"is_on": true, "is_circadian": true},
	})
	assert.True(t, ok, reason)

	ok, reason, _ = CheckRedisExpectation(ctx, client, scenario.Expectation{
		RedisKey: "circadian:area:office", RedisField: "label", Expected: "~office~",
	})
	assert.True(t, ok, reason)

	ok, reason, _ = CheckRedisExpectation(ctx, client, scenario.Expectation{
		RedisKey: "circadian:area:office", RedisField: "state", JSONField: "color_override", Expected: 3000,
	})
	assert.False(t, ok)
	assert.Contains(t, reason, "color_override")

	ok, reason, _ = CheckRedisExpectation(ctx, client, scenario.Expectation{
		RedisKey: "circadian:area:hall", RedisField: "state", Expected: true,
	})
	require.False(t, ok)
	assert.Contains(t, reason, "not found")
}

func TestNormalizeScanned(t *testing.T) {
	assert.Equal(t, 1.5, normalizeScanned([]byte("1.5")))
	assert.Equal(t, "manual", normalizeScanned([]byte("manual")))
	assert.Equal(t, int64(2), normalizeScanned(int64(2)))
}

type stubRow struct {
	postgres.Client
	value interface{}
	err   error
}

func (s *stubRow) QueryRow(_ context.Context, _ string, _ []interface{}, dest ...interface{}) error {
	if s.err != nil {
		return s.err
	}
	*(dest[0].(*interface{})) = s.value
	return nil
}

func TestPostgresChecker_Check(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	exp := scenario.Expectation{PostgresQuery: "SELECT COUNT(*) FROM circadian_events", PostgresExpected: 2}

	ok, reason, actual := NewPostgresChecker(&stubRow{value: int64(2)}, logger).Check(context.Background(), exp)
	assert.True(t, ok, reason)
	assert.Equal(t, int64(2), actual)

	ok, _, _ = NewPostgresChecker(&stubRow{value: []byte("2.0")}, logger).Check(context.Background(), exp)
	assert.True(t, ok)

	ok, reason, _ = NewPostgresChecker(&stubRow{err: sql.ErrNoRows}, logger).Check(context.Background(), exp)
	assert.False(t, ok)
	assert.Equal(t, "query returned no rows", reason)

	ok, reason, _ = NewPostgresChecker(&stubRow{err: errors.New("relation does not exist")}, logger).Check(context.Background(), exp)
	assert.False(t, ok)
	assert.Contains(t, reason, "relation does not exist")
}
