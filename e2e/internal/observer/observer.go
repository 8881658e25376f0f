package observer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CapturedMessage is one MQTT message seen during a run
type CapturedMessage struct {
	Timestamp time.Time   `json:"timestamp"`
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	Retained  bool        `json:"retained,omitempty"`
}

// Observer records traffic under automation/# for later checks
type Observer struct {
	client    mqtt.Client
	broker    string
	clientID  string
	filter    string
	logger    *slog.Logger
	mu        sync.RWMutex
	messages  []CapturedMessage
	startTime time.Time
	now       func() time.Time
}

// NewObserver creates an observer for the broker
func NewObserver(broker, clientID string, logger *slog.Logger) *Observer {
	return &Observer{
		broker:   broker,
		clientID: clientID,
		filter:   "automation/#",
		logger:   logger,
		now:      time.Now,
	}
}

// Start connects and subscribes. Subscriptions are renewed on reconnect.
func (o *Observer) Start() error {
	o.startTime = o.now()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.broker)
	opts.SetClientID(o.clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		o.logger.Warn("Observer connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(o.filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
			o.record(msg.Topic(), msg.Payload(), msg.Retained())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			o.logger.Error("Observer failed to subscribe", "filter", o.filter, "error", err)
			return
		}
		o.logger.Info("Observer subscribed", "filter", o.filter)
	})

	o.client = mqtt.NewClient(opts)
	token := o.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return nil
}

// record stores a message, decoding JSON payloads
func (o *Observer) record(topic string, raw []byte, retained bool) {
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = string(raw)
	}

	now := o.now()

	o.mu.Lock()
	o.messages = append(o.messages, CapturedMessage{
		Timestamp: now,
		Topic:     topic,
		Payload:   payload,
		Retained:  retained,
	})
	o.mu.Unlock()

	o.logger.Debug("Captured message",
		"elapsed_s", fmt.Sprintf("%.2f", now.Sub(o.startTime).Seconds()),
		"topic", topic,
		"size", len(raw))
}

// GetAllMessages returns a copy of everything captured so far
func (o *Observer) GetAllMessages() []CapturedMessage {
	o.mu.RLock()
	defer o.mu.RUnlock()

	messages := make([]CapturedMessage, len(o.messages))
	copy(messages, o.messages)
	return messages
}

// GetMessagesSince returns messages captured at or after since
func (o *Observer) GetMessagesSince(since time.Time) []CapturedMessage {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var matches []CapturedMessage
	for _, msg := range o.messages {
		if !msg.Timestamp.Before(since) {
			matches = append(matches, msg)
		}
	}
	return matches
}

// GetMessageCount returns the number of captured messages
func (o *Observer) GetMessageCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.messages)
}

// SaveCapture writes the capture as indented JSON
func (o *Observer) SaveCapture(filename string) error {
	o.mu.RLock()
	data, err := json.MarshalIndent(o.messages, "", "  ")
	count := len(o.messages)
	o.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save capture: %w", err)
	}

	o.logger.Info("Saved capture", "messages", count, "file", filename)
	return nil
}

// Stop disconnects from the broker
func (o *Observer) Stop() {
	if o.client != nil && o.client.IsConnected() {
		o.client.Disconnect(250)
		o.logger.Info("Observer disconnected")
	}
}
