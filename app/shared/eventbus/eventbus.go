// Package eventbus wires the in-process watermill pub/sub and the event contracts
// shared between the session, persistence and sync layers.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventBus is both ends of the in-process pub/sub.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// NewInProcess returns a gochannel pub/sub logging through logger.
func NewInProcess(logger *slog.Logger) EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)
}

// NewRouter creates a watermill router logging through logger.
func NewRouter(logger *slog.Logger) (*message.Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}
	return router, nil
}

// PublishJSON marshals payload into a new message and publishes it on topic.
// A nil publisher is a no-op.
func PublishJSON(pub message.Publisher, topic string, payload any) error {
	if pub == nil {
		return nil
	}
	msg, err := NewJSONMessage(payload)
	if err != nil {
		return err
	}
	if err := pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// NewJSONMessage builds a message with a JSON body.
func NewJSONMessage(payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("content_type", "application/json")
	return msg, nil
}

// DecodeJSON unmarshals a message body into T.
func DecodeJSON[T any](msg *message.Message) (*T, error) {
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", payload, err)
	}
	return &payload, nil
}

// MetadataTopic carries the destination topic of a handler result.
const MetadataTopic = "topic"

type topicPublisher struct {
	message.Publisher
}

// NewTopicPublisher wraps pub so that publishing to the empty topic routes
// every message to the topic named in its MetadataTopic metadata.
func NewTopicPublisher(pub message.Publisher) message.Publisher {
	return topicPublisher{Publisher: pub}
}

func (p topicPublisher) Publish(topic string, messages ...*message.Message) error {
	if topic != "" {
		return p.Publisher.Publish(topic, messages...)
	}
	for _, msg := range messages {
		target := msg.Metadata.Get(MetadataTopic)
		if target == "" {
			return fmt.Errorf("message %s has no %q metadata", msg.UUID, MetadataTopic)
		}
		if err := p.Publisher.Publish(target, msg); err != nil {
			return fmt.Errorf("failed to publish %s: %w", target, err)
		}
	}
	return nil
}
