package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const sensorTypeIlluminance = "illuminance"

// ErrNoReading is returned for payloads that parse but carry no usable lux value
var ErrNoReading = errors.New("no illuminance value in payload")

// Processor handles parsing of raw illuminance messages
type Processor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewProcessor creates a new message processor
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{
		logger: logger,
		now:    time.Now,
	}
}

// SensorMessage represents a parsed lux reading with metadata
type SensorMessage struct {
	SensorType    string
	Location      string
	OriginalTopic string
	Lux           float64
	Unit          string
	Source        string
	Timestamp     time.Time
	CollectedAt   int64 // Unix milliseconds
}

// EnvironmentalData is the JSON member stored in the environmental sorted set
type EnvironmentalData struct {
	Timestamp   string   `json:"timestamp"`
	CollectedAt int64    `json:"collected_at"`
	Illuminance *float64 `json:"illuminance,omitempty"`
	IllumUnit   *string  `json:"illuminance_unit,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// ParseMessage parses an MQTT message into a lux reading.
// Topic pattern: automation/raw/illuminance/{location}
// Payloads are wrapped ({"data": {"value": 450, "unit": "lux"}}) or flat.
func (p *Processor) ParseMessage(topic string, payload []byte) (*SensorMessage, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[3] == "" {
		p.logger.Warn("Invalid topic format", "topic", topic)
		return nil, fmt.Errorf("invalid topic format: %s (expected at least 4 parts)", topic)
	}
	if parts[2] != sensorTypeIlluminance {
		return nil, fmt.Errorf("unsupported sensor type %q", parts[2])
	}

	var rawData map[string]interface{}
	if err := json.Unmarshal(payload, &rawData); err != nil {
		p.logger.Error("Failed to parse JSON payload", "topic", topic, "error", err)
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	data, ok := rawData["data"].(map[string]interface{})
	if !ok {
		data = rawData
	}

	lux, ok := luxValue(data)
	if !ok {
		return nil, ErrNoReading
	}
	if lux < 0 {
		return nil, fmt.Errorf("negative illuminance %v", lux)
	}

	unit := "lux"
	if u, ok := data["unit"].(string); ok && u != "" {
		unit = u
	}

	source := "sensor"
	if id, ok := data["entity_id"].(string); ok && id != "" {
		source = id
	}

	now := p.now().UTC()
	msg := &SensorMessage{
		SensorType:    parts[2],
		Location:      parts[3],
		OriginalTopic: topic,
		Lux:           lux,
		Unit:          unit,
		Source:        source,
		Timestamp:     now,
		CollectedAt:   now.UnixMilli(),
	}

	p.logger.Debug("Parsed illuminance message",
		"location", msg.Location,
		"lux", lux,
		"topic", topic)

	return msg, nil
}

// luxValue accepts "value" as used by the raw sensor bridge, or "illuminance"
func luxValue(data map[string]interface{}) (float64, bool) {
	for _, key := range []string{"value", "illuminance"} {
		if v, ok := data[key].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

// BuildEnvironmentalData converts a reading to its Redis representation
func (p *Processor) BuildEnvironmentalData(msg *SensorMessage) *EnvironmentalData {
	lux := msg.Lux
	unit := msg.Unit
	return &EnvironmentalData{
		Timestamp:   msg.Timestamp.Format(time.RFC3339Nano),
		CollectedAt: msg.CollectedAt,
		Illuminance: &lux,
		IllumUnit:   &unit,
		Source:      msg.Source,
	}
}

// BuildTriggerPayload creates the payload announcing a stored reading
func (p *Processor) BuildTriggerPayload(msg *SensorMessage) ([]byte, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"value": msg.Lux,
			"unit":  msg.Unit,
		},
		"original_topic": msg.OriginalTopic,
		"stored_at":      msg.Timestamp.Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	return data, nil
}
