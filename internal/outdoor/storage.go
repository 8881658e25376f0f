package outdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saaga0h/circadian-platform/pkg/redis"
)

// Reading is a single outdoor illuminance measurement
type Reading struct {
	Timestamp time.Time
	Lux       float64
	Source    string
}

// Baselines are the learned dark-day floor and bright-day ceiling in lux
type Baselines struct {
	Floor   float64
	Ceiling float64
}

// Valid reports whether the baselines can produce a sun factor
func (b Baselines) Valid() bool {
	return b.Floor > 0 && b.Ceiling > b.Floor
}

// Storage reads outdoor lux history from Redis and persists learned baselines.
// Readings live in the environmental sorted set of the outdoor location,
// scored by unix milliseconds, with JSON members carrying "illuminance".
type Storage struct {
	redis    redis.Client
	location string
	logger   *slog.Logger
}

// NewStorage creates a Storage for the sensor location
func NewStorage(redisClient redis.Client, location string, logger *slog.Logger) *Storage {
	return &Storage{
		redis:    redisClient,
		location: location,
		logger:   logger,
	}
}

// Latest returns the newest lux reading no older than maxAge, or nil
func (s *Storage) Latest(ctx context.Context, now time.Time, maxAge time.Duration) (*Reading, error) {
	key := redis.EnvironmentalSensorKey(s.location)

	// Newest first; scan a few entries since temperature-only readings share the set
	members, err := s.redis.ZRevRangeByScoreWithScores(ctx, key,
		float64(now.UnixMilli()), float64(now.Add(-maxAge).UnixMilli()), 0, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest lux: %w", err)
	}

	for _, m := range members {
		if r, ok := s.parse(key, m); ok {
			return &r, nil
		}
	}
	return nil, nil
}

// Range returns lux readings between start and end, oldest first
func (s *Storage) Range(ctx context.Context, start, end time.Time) ([]Reading, error) {
	key := redis.EnvironmentalSensorKey(s.location)

	members, err := s.redis.ZRangeByScoreWithScores(ctx, key,
		float64(start.UnixMilli()), float64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("failed to query lux history: %w", err)
	}

	readings := make([]Reading, 0, len(members))
	for _, m := range members {
		if r, ok := s.parse(key, m); ok {
			readings = append(readings, r)
		}
	}
	return readings, nil
}

func (s *Storage) parse(key string, m redis.ZMember) (Reading, bool) {
	var data struct {
		Illuminance *float64 `json:"illuminance"`
		Timestamp   string   `json:"timestamp"`
		Source      string   `json:"source"`
	}
	if err := json.Unmarshal([]byte(m.Member), &data); err != nil {
		s.logger.Warn("Failed to parse environmental reading", "key", key, "error", err)
		return Reading{}, false
	}
	if data.Illuminance == nil {
		return Reading{}, false
	}

	ts := time.UnixMilli(int64(m.Score))
	if data.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, data.Timestamp); err == nil {
			ts = parsed
		}
	}

	return Reading{Timestamp: ts, Lux: *data.Illuminance, Source: data.Source}, true
}

// LoadBaselines returns persisted baselines; ok is false when none are stored
func (s *Storage) LoadBaselines(ctx context.Context) (Baselines, bool, error) {
	fields, err := s.redis.HGetAll(ctx, redis.OutdoorBaselineKey(s.location))
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return Baselines{}, false, nil
		}
		return Baselines{}, false, fmt.Errorf("failed to load lux baselines: %w", err)
	}

	floor, errF := strconv.ParseFloat(fields["floor"], 64)
	ceiling, errC := strconv.ParseFloat(fields["ceiling"], 64)
	if errF != nil || errC != nil {
		return Baselines{}, false, nil
	}

	b := Baselines{Floor: floor, Ceiling: ceiling}
	return b, b.Valid(), nil
}

// SaveBaselines persists learned baselines
func (s *Storage) SaveBaselines(ctx context.Context, b Baselines) error {
	key := redis.OutdoorBaselineKey(s.location)
	if err := s.redis.HSet(ctx, key, "floor", strconv.FormatFloat(b.Floor, 'f', 1, 64)); err != nil {
		return fmt.Errorf("failed to save lux floor: %w", err)
	}
	if err := s.redis.HSet(ctx, key, "ceiling", strconv.FormatFloat(b.Ceiling, 'f', 1, 64)); err != nil {
		return fmt.Errorf("failed to save lux ceiling: %w", err)
	}
	return nil
}
