package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saaga0h/circadian-platform/pkg/redis"
)

// Storage writes lux readings into the environmental sorted set the circadian
// agent reads. Readings are kept long enough to learn lux baselines.
type Storage struct {
	redis     redis.Client
	retention time.Duration
	logger    *slog.Logger
}

// NewStorage creates a new storage handler
func NewStorage(redisClient redis.Client, retention time.Duration, logger *slog.Logger) *Storage {
	return &Storage{
		redis:     redisClient,
		retention: retention,
		logger:    logger,
	}
}

// StoreReading adds the reading scored by collection time, drops readings
// older than the retention window and refreshes the key TTL.
// Pattern: sensor:environmental:{location} (sorted set)
func (s *Storage) StoreReading(ctx context.Context, msg *SensorMessage, processor *Processor) error {
	key := redis.EnvironmentalSensorKey(msg.Location)

	jsonData, err := json.Marshal(processor.BuildEnvironmentalData(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal environmental data: %w", err)
	}

	if err := s.redis.ZAdd(ctx, key, float64(msg.CollectedAt), string(jsonData)); err != nil {
		return fmt.Errorf("failed to add environmental data to sorted set: %w", err)
	}

	cutoff := msg.CollectedAt - s.retention.Milliseconds()
	if err := s.redis.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10)); err != nil {
		s.logger.Warn("Failed to clean old environmental data", "location", msg.Location, "error", err)
	}

	if err := s.redis.Expire(ctx, key, s.retention); err != nil {
		return fmt.Errorf("failed to set TTL on environmental data: %w", err)
	}

	count, err := s.redis.ZCard(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to get environmental buffer size", "location", msg.Location, "error", err)
	} else {
		s.logger.Debug("Stored illuminance reading",
			"location", msg.Location,
			"lux", msg.Lux,
			"buffer_size", count)
	}

	return nil
}
