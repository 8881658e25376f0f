package light

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saaga0h/circadian-platform/internal/circadian"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

const (
	stateField     = "state"
	recentCapacity = 50
)

// StateStore persists area state as JSON in the area's Redis hash and keeps a
// short list of recently published output per area
type StateStore struct {
	redis redis.Client
}

// NewStateStore creates a store backed by the Redis client
func NewStateStore(redisClient redis.Client) *StateStore {
	return &StateStore{redis: redisClient}
}

// DefaultAreaState is the state of an area the agent has never seen: circadian
// control enabled, lights off, no adjustments
func DefaultAreaState() circadian.AreaState {
	return circadian.AreaState{IsCircadian: true}
}

// Load returns the stored state, or the default state for unknown areas
func (s *StateStore) Load(ctx context.Context, area string) (circadian.AreaState, error) {
	raw, err := s.redis.HGet(ctx, redis.AreaStateKey(area), stateField)
	if errors.Is(err, redis.ErrNotFound) {
		return DefaultAreaState(), nil
	}
	if err != nil {
		return circadian.AreaState{}, fmt.Errorf("failed to load state for %s: %w", area, err)
	}

	var state circadian.AreaState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return circadian.AreaState{}, fmt.Errorf("failed to decode state for %s: %w", area, err)
	}
	return state, nil
}

// Save stores the state
func (s *StateStore) Save(ctx context.Context, area string, state circadian.AreaState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state for %s: %w", area, err)
	}
	if err := s.redis.HSet(ctx, redis.AreaStateKey(area), stateField, string(data)); err != nil {
		return fmt.Errorf("failed to save state for %s: %w", area, err)
	}
	return nil
}

// Areas lists every area with stored state
func (s *StateStore) Areas(ctx context.Context) ([]string, error) {
	keys, err := s.redis.Keys(ctx, redis.AreaStatePattern())
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}

	areas := make([]string, 0, len(keys))
	for _, key := range keys {
		if area, ok := redis.AreaFromStateKey(key); ok {
			areas = append(areas, area)
		}
	}
	return areas, nil
}

// RecentEntry is one published output kept in the recent list
type RecentEntry struct {
	Action     string   `json:"action"`
	Reason     string   `json:"reason"`
	Brightness int      `json:"brightness"`
	ColorTemp  int      `json:"color_temp"`
	Rules      []string `json:"active_rules,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// PushRecent prepends an entry and trims the list to its capacity
func (s *StateStore) PushRecent(ctx context.Context, area string, entry RecentEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode recent entry: %w", err)
	}

	key := redis.RecentEventsKey(area)
	if err := s.redis.LPush(ctx, key, string(data)); err != nil {
		return err
	}
	return s.redis.LTrim(ctx, key, 0, recentCapacity-1)
}

// Recent returns up to n entries, newest first
func (s *StateStore) Recent(ctx context.Context, area string, n int) ([]RecentEntry, error) {
	raw, err := s.redis.LRange(ctx, redis.RecentEventsKey(area), 0, int64(n-1))
	if err != nil {
		return nil, err
	}

	entries := make([]RecentEntry, 0, len(raw))
	for _, r := range raw {
		var e RecentEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
