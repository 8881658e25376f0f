package executor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
)

// Player publishes scenario events the way devices and controllers would
type Player struct {
	client   mqtt.Client
	location string
	logger   *slog.Logger
	now      func() time.Time
}

// NewPlayer creates a player publishing lux readings for location
func NewPlayer(client mqtt.Client, location string, logger *slog.Logger) *Player {
	return &Player{
		client:   client,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// PublishEvent sends one event with QoS 1
func (p *Player) PublishEvent(event scenario.Event) error {
	topic, payload, err := p.buildMessage(event)
	if err != nil {
		return err
	}

	if err := p.client.Publish(topic, 1, false, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debug("Published event", "topic", topic, "payload", string(payload))
	return nil
}

// buildMessage maps an event to its topic and JSON payload:
//
//	command  automation/command/circadian/{area}
//	lux      automation/raw/illuminance/{location}
//	weather  automation/context/weather
func (p *Player) buildMessage(event scenario.Event) (string, []byte, error) {
	var topic string
	var body interface{}

	switch event.Category() {
	case scenario.CategoryCommand:
		topic = mqtt.CircadianCommandTopic(event.Area)
		body = event.Command
	case scenario.CategoryLux:
		topic = mqtt.RawSensorTopic("illuminance", p.location)
		body = map[string]interface{}{
			"data": map[string]interface{}{
				"value": *event.Lux,
				"unit":  "lux",
			},
			"timestamp": p.now().UTC().Format(time.RFC3339),
		}
	case scenario.CategoryWeather:
		topic = mqtt.TopicWeather
		body = event.Weather
	default:
		return "", nil, fmt.Errorf("event %q has no payload", event.Description)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return topic, payload, nil
}
