package analytics

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/ringtones/internal/events"
)

// Publisher sends analytics events to the stream for the consumer process.
type Publisher struct {
	downloaded events.Publish[RingtoneDownloaded]
	impression events.Publish[AdImpression]
}

// NewPublisher creates a new analytics publisher.
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{
		downloaded: events.NewPublishFunc[RingtoneDownloaded](publisher, TopicRingtoneDownloaded),
		impression: events.NewPublishFunc[AdImpression](publisher, TopicAdImpression),
	}
}

func (p *Publisher) Downloaded(ctx context.Context, event *RingtoneDownloaded) error {
	return p.downloaded(ctx, event)
}

func (p *Publisher) Impression(ctx context.Context, event *AdImpression) error {
	return p.impression(ctx, event)
}

var _ Sink = (*Publisher)(nil)
