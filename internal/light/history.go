package light

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/saaga0h/circadian-platform/internal/circadian"
	"github.com/saaga0h/circadian-platform/pkg/postgres"
)

// Event is one applied lighting change
type Event struct {
	ID            uuid.UUID
	Area          string
	Action        string
	Reason        string
	CorrelationID string
	Brightness    int
	ColorTemp     int
	SolarHour     float64
	ActiveRules   []string
	State         circadian.AreaState
	Timestamp     time.Time
}

// Recorder stores lighting events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

var historySchema = []string{
	`CREATE TABLE IF NOT EXISTS circadian_events (
		id             UUID PRIMARY KEY,
		area           TEXT NOT NULL,
		action         TEXT NOT NULL,
		reason         TEXT NOT NULL,
		correlation_id TEXT,
		brightness     INTEGER NOT NULL,
		color_temp     INTEGER NOT NULL,
		solar_hour     DOUBLE PRECISION NOT NULL,
		active_rules   TEXT[] NOT NULL DEFAULT '{}',
		state          JSONB NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS circadian_events_area_time ON circadian_events (area, created_at DESC)`,
}

// History records events in Postgres
type History struct {
	db postgres.Client
}

// NewHistory creates the history table if needed
func NewHistory(ctx context.Context, db postgres.Client) (*History, error) {
	if err := db.Migrate(ctx, historySchema); err != nil {
		return nil, fmt.Errorf("failed to prepare history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts the event, assigning an id and timestamp when missing
func (h *History) Record(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	stateJSON, err := json.Marshal(event.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var correlation interface{}
	if event.CorrelationID != "" {
		correlation = event.CorrelationID
	}

	rules := event.ActiveRules
	if rules == nil {
		rules = []string{}
	}

	query := `
		INSERT INTO circadian_events (
			id, area, action, reason, correlation_id, brightness, color_temp,
			solar_hour, active_rules, state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = h.db.Exec(ctx, query,
		event.ID,
		event.Area,
		event.Action,
		event.Reason,
		correlation,
		event.Brightness,
		event.ColorTemp,
		event.SolarHour,
		pq.Array(rules),
		stateJSON,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns the latest events for an area, newest first
func (h *History) Recent(ctx context.Context, area string, limit int) ([]Event, error) {
	rows, err := h.db.Query(ctx, `
		SELECT id, area, action, reason, COALESCE(correlation_id, ''), brightness,
		       color_temp, solar_hour, active_rules, state, created_at
		FROM circadian_events
		WHERE area = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, area, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var stateJSON []byte
		if err := rows.Scan(&e.ID, &e.Area, &e.Action, &e.Reason, &e.CorrelationID,
			&e.Brightness, &e.ColorTemp, &e.SolarHour, pq.Array(&e.ActiveRules),
			&stateJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal(stateJSON, &e.State); err != nil {
			return nil, fmt.Errorf("failed to decode event state: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
