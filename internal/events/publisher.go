package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// MetadataEventType is set on every published message to the topic name.
const MetadataEventType = "event_type"

// Publish sends one event of type T to a fixed topic.
type Publish[T any] func(ctx context.Context, event *T) error

// NewPublishFunc binds publisher and topic into a Publish for T. Events are
// JSON encoded and carry the caller's context.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(ctx context.Context, event *T) error {
		msg, err := encode(ctx, topic, event)
		if err != nil {
			return err
		}

		return publisher.Publish(topic, msg)
	}
}

func encode(ctx context.Context, topic string, event any) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessageWithContext(ctx, watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEventType, topic)

	return msg, nil
}

// PublisherGroup owns a publisher shared by several Publish funcs and
// closes it on shutdown.
type PublisherGroup struct {
	publisher message.Publisher
}

func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
