package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saaga0h/circadian-platform/pkg/config"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

// Agent receives raw illuminance readings, stores them in Redis and
// announces each stored reading on the processed sensor topic
type Agent struct {
	mqtt      mqtt.Client
	redis     redis.Client
	processor *Processor
	storage   *Storage
	cfg       *config.Config
	logger    *slog.Logger
}

// NewAgent creates a new lux collector with the given dependencies
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:      mqttClient,
		redis:     redisClient,
		processor: NewProcessor(logger),
		storage:   NewStorage(redisClient, cfg.LuxRetention(), logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Start connects, subscribes and blocks until ctx is cancelled
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting lux collector",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress(),
		"retention_days", a.cfg.LuxRetentionDays)

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	for _, topic := range a.cfg.CollectorTopics {
		if err := a.mqtt.Subscribe(topic, 0, a.handleMessage); err != nil {
			a.logger.Error("Failed to subscribe to topic", "topic", topic, "error", err)
			continue
		}
	}

	a.logger.Info("Lux collector started and ready to receive messages",
		"subscribed_topics", strings.Join(a.cfg.CollectorTopics, ", "))

	<-ctx.Done()
	a.logger.Info("Lux collector stopping")

	return nil
}

// Stop gracefully stops the collector
func (a *Agent) Stop() error {
	a.logger.Info("Stopping lux collector")

	a.mqtt.Disconnect()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Lux collector stopped")
	return nil
}

func (a *Agent) handleMessage(msg mqtt.Message) {
	topic := msg.Topic()
	payload := msg.Payload()

	a.logger.Debug("Received MQTT message", "topic", topic, "size", len(payload))

	reading, err := a.processor.ParseMessage(topic, payload)
	if errors.Is(err, ErrNoReading) {
		a.logger.Debug("Ignoring message without illuminance", "topic", topic)
		return
	}
	if err != nil {
		a.logger.Error("Failed to parse message", "topic", topic, "error", err)
		return
	}

	ctx := context.Background()

	// Announce even when storage fails so the agent can retry the read
	if err := a.storage.StoreReading(ctx, reading, a.processor); err != nil {
		a.logger.Error("Failed to store illuminance reading",
			"location", reading.Location,
			"error", err)
	}

	if err := a.publishTrigger(reading); err != nil {
		a.logger.Error("Failed to publish trigger message",
			"location", reading.Location,
			"error", err)
	}

	a.logger.Info("Illuminance reading processed",
		"location", reading.Location,
		"lux", reading.Lux)
}

// publishTrigger converts automation/raw/illuminance/{location} into
// automation/sensor/illuminance/{location}
func (a *Agent) publishTrigger(msg *SensorMessage) error {
	triggerTopic := mqtt.ProcessedSensorTopic(msg.SensorType, msg.Location)

	payload, err := a.processor.BuildTriggerPayload(msg)
	if err != nil {
		return fmt.Errorf("failed to build trigger payload: %w", err)
	}

	if err := a.mqtt.Publish(triggerTopic, 0, false, payload); err != nil {
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	a.logger.Debug("Published trigger", "topic", triggerTopic)
	return nil
}
