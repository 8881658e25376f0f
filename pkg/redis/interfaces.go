package redis

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or hash field does not exist
var ErrNotFound = errors.New("redis: not found")

// ZMember is a sorted set member with its score
type ZMember struct {
	Score  float64
	Member string
}

// Client is the subset of Redis the circadian services rely on.
//
// Hashes hold area state and learned baselines, sorted sets hold lux
// readings scored by unix milliseconds, lists hold recent results.
type Client interface {
	HSet(ctx context.Context, key string, field string, value interface{}) error
	// HGet returns ErrNotFound (wrapped) when the field is absent
	HGet(ctx context.Context, key string, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	ZAdd(ctx context.Context, key string, score float64, member interface{}) error
	// ZRemRangeByScore takes Redis score syntax, so "-inf" and "(123" work
	ZRemRangeByScore(ctx context.Context, key string, min, max string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRangeByScoreWithScores(ctx context.Context, key string, min, max float64) ([]ZMember, error)
	ZRevRangeByScoreWithScores(ctx context.Context, key string, max, min float64, offset, count int64) ([]ZMember, error)

	LPush(ctx context.Context, key string, values ...interface{}) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	Expire(ctx context.Context, key string, expiration time.Duration) error
	// Keys iterates with SCAN
	Keys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
