package mqtt

import "context"

// Client is the broker connection shared by the agents
type Client interface {
	Connect(ctx context.Context) error

	// Disconnect publishes the offline status before closing
	Disconnect()

	// Subscribe registers handler for topic; subscriptions survive reconnects
	Subscribe(topic string, qos byte, handler MessageHandler) error

	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
}

// MessageHandler handles one inbound message
type MessageHandler func(Message)

// Message is an inbound MQTT message
type Message interface {
	Topic() string
	Payload() []byte

	// Retained reports whether the broker replayed a stored message on
	// subscribe rather than forwarding a live publish
	Retained() bool

	Ack()
}
