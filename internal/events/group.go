package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a startable consumer of one topic.
type Runnable interface {
	Topic() string
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs consumers that share one subscriber and owns that
// subscriber's lifetime.
type ConsumerGroup struct {
	subscriber message.Subscriber
	consumers  []Runnable
	logger     *zap.Logger
}

func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{subscriber: subscriber, logger: logger}
}

// Subscriber is the subscriber consumers added to the group should use.
func (g *ConsumerGroup) Subscriber() message.Subscriber {
	return g.subscriber
}

func (g *ConsumerGroup) Add(c Runnable) {
	g.consumers = append(g.consumers, c)
}

func (g *ConsumerGroup) Len() int {
	return len(g.consumers)
}

// Start starts every consumer. If one fails, those already running are
// shut down again in reverse order.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, c := range g.consumers {
		if err := c.Start(ctx); err != nil {
			for _, running := range g.consumers[:i] {
				_ = running.Shutdown()
			}

			return fmt.Errorf("start consumer for %s: %w", c.Topic(), err)
		}

		g.logger.Debug("consumer started", zap.String("topic", c.Topic()))
	}

	g.logger.Info("consumer group started", zap.Int("consumers", len(g.consumers)))

	return nil
}

// Shutdown stops every consumer, then closes the subscriber. All errors are
// returned joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("stopping consumer group")

	var errs []error

	for _, c := range g.consumers {
		if err := c.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("stop consumer for %s: %w", c.Topic(), err))
		}
	}

	if err := g.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}

	return errors.Join(errs...)
}
