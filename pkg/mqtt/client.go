package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/saaga0h/circadian-platform/pkg/config"
)

const publishTimeout = 5 * time.Second

type subscription struct {
	qos     byte
	handler pahomqtt.MessageHandler
}

// mqttClient implements the Client interface using the Paho MQTT client
type mqttClient struct {
	client pahomqtt.Client
	cfg    *config.Config
	logger *slog.Logger

	// Clean sessions drop subscriptions on reconnect, so they are replayed from here
	subMu sync.Mutex
	subs  map[string]subscription
}

// NewClient creates a new MQTT client with the given configuration.
// The broker is told to publish an "offline" status for the service if the
// connection drops without a clean disconnect.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	m := &mqttClient{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTAddress())

	if cfg.MQTTClientID != "" {
		opts.SetClientID(cfg.MQTTClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("%s-%d", cfg.ServiceName, time.Now().Unix()))
	}

	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetWill(StatusTopic(cfg.ServiceName), StatusOffline, 1, true)

	opts.OnConnect = func(c pahomqtt.Client) {
		logger.Info("Connected to MQTT broker", "broker", cfg.MQTTAddress())
		m.resubscribe(c)
		c.Publish(StatusTopic(cfg.ServiceName), 1, true, StatusOnline)
	}

	opts.OnConnectionLost = func(c pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	}

	opts.OnReconnecting = func(c pahomqtt.Client, opts *pahomqtt.ClientOptions) {
		logger.Info("MQTT reconnecting...")
	}

	m.client = pahomqtt.NewClient(opts)
	return m
}

// Connect establishes a connection to the MQTT broker
func (m *mqttClient) Connect(ctx context.Context) error {
	m.logger.Info("Connecting to MQTT broker", "broker", m.cfg.MQTTAddress())

	token := m.client.Connect()

	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection timeout: %w", ctx.Err())
	}
}

// Disconnect publishes the offline status and closes the connection
func (m *mqttClient) Disconnect() {
	m.logger.Info("Disconnecting from MQTT broker")
	if m.client.IsConnected() {
		m.client.Publish(StatusTopic(m.cfg.ServiceName), 1, true, StatusOffline).WaitTimeout(time.Second)
	}
	m.client.Disconnect(250)
}

// Subscribe subscribes to a topic and remembers it for reconnects
func (m *mqttClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	m.logger.Info("Subscribing to MQTT topic", "topic", topic, "qos", qos)

	pahoHandler := func(client pahomqtt.Client, msg pahomqtt.Message) {
		handler(&mqttMessage{msg: msg})
	}

	m.subMu.Lock()
	m.subs[topic] = subscription{qos: qos, handler: pahoHandler}
	m.subMu.Unlock()

	token := m.client.Subscribe(topic, qos, pahoHandler)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (m *mqttClient) resubscribe(c pahomqtt.Client) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for topic, sub := range m.subs {
		token := c.Subscribe(topic, sub.qos, sub.handler)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			m.logger.Warn("Failed to restore MQTT subscription", "topic", topic, "error", token.Error())
			continue
		}
		m.logger.Debug("Restored MQTT subscription", "topic", topic)
	}
}

// Publish publishes a message to a topic
func (m *mqttClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := m.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("failed to publish to topic %s: timed out", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	m.logger.Debug("Published message", "topic", topic, "size", len(payload))
	return nil
}

// IsConnected returns whether the client is currently connected
func (m *mqttClient) IsConnected() bool {
	return m.client.IsConnected()
}

// mqttMessage adapts a paho message to Message
type mqttMessage struct {
	msg pahomqtt.Message
}

func (m *mqttMessage) Topic() string   { return m.msg.Topic() }
func (m *mqttMessage) Payload() []byte { return m.msg.Payload() }
func (m *mqttMessage) Retained() bool  { return m.msg.Retained() }
func (m *mqttMessage) Ack()            { m.msg.Ack() }
