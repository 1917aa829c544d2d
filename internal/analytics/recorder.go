package analytics

import (
	"context"
	"fmt"

	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/events"
	"go.uber.org/zap"
)

// Recorder persists analytics events.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Downloaded writes a download log row and bumps the ringtone's counter.
func (r *Recorder) Downloaded(ctx context.Context, event *RingtoneDownloaded) error {
	err := r.store.RecordDownload(ctx, catalog.DownloadLog{
		RingtoneID: event.RingtoneID,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
		Referer:    event.Referer,
		CreatedAt:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record download of ringtone %d: %w", event.RingtoneID, err)
	}

	r.logger.Debug("download recorded",
		zap.Int64("ringtone_id", event.RingtoneID),
		zap.String("ip", event.IPAddress),
	)

	return nil
}

// Impression increments the ad's impression counter.
func (r *Recorder) Impression(ctx context.Context, event *AdImpression) error {
	if err := r.store.RecordImpression(ctx, event.AdID); err != nil {
		return fmt.Errorf("record impression of ad %d: %w", event.AdID, err)
	}

	return nil
}

// RegisterConsumers adds one consumer per analytics topic to group.
func (r *Recorder) RegisterConsumers(group *events.ConsumerGroup) {
	sub := group.Subscriber()

	group.Add(events.NewConsumer(sub, TopicRingtoneDownloaded, r.Downloaded, r.logger))
	group.Add(events.NewConsumer(sub, TopicAdImpression, r.Impression, r.logger))
}

var _ Sink = (*Recorder)(nil)
