package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/ringtones/internal/metrics"
	"go.uber.org/zap"
)

// Handler processes one decoded event. Returning an error asks the broker
// to redeliver the message.
type Handler[T any] func(ctx context.Context, event *T) error

type outcome string

const (
	outcomeHandled outcome = "handled"
	outcomeRetried outcome = "retried"
	outcomeDropped outcome = "dropped"
)

// Consumer decodes JSON messages from one topic into T and feeds them to a
// Handler, one at a time.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handle     Handler[T]
	logger     *zap.Logger

	stop    context.CancelFunc
	stopped chan struct{}
}

func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handle Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handle:     handle,
		logger:     logger.With(zap.String("topic", topic)),
		stopped:    make(chan struct{}),
	}
}

func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until ctx is
// cancelled, Shutdown is called, or the subscription channel closes.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.stop = context.WithCancel(ctx)

	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		c.stop()
		close(c.stopped)

		return err
	}

	go func() {
		defer close(c.stopped)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				o := c.process(ctx, msg)
				metrics.EventsProcessed.WithLabelValues(c.topic, string(o)).Inc()
			}
		}
	}()

	return nil
}

// process acks or nacks msg. Payloads that do not decode are acked and
// dropped since redelivery cannot fix them.
func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) outcome {
	log := c.logger.With(zap.String("message_uuid", msg.UUID))

	event := new(T)
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		log.Error("dropping undecodable event", zap.Error(err))
		msg.Ack()

		return outcomeDropped
	}

	if err := c.handle(ctx, event); err != nil {
		log.Error("event handler failed", zap.Error(err))
		msg.Nack()

		return outcomeRetried
	}

	msg.Ack()
	log.Debug("event handled")

	return outcomeHandled
}

// Shutdown stops the consumer and waits for the message in flight.
// It is a no-op for a consumer that was never started.
func (c *Consumer[T]) Shutdown() error {
	if c.stop == nil {
		return nil
	}

	c.stop()
	<-c.stopped

	return nil
}
