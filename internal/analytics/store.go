package analytics

import (
	"context"

	"github.com/serroba/ringtones/internal/catalog"
)

// Store persists analytics. catalog.Repository satisfies it.
type Store interface {
	RecordDownload(ctx context.Context, log catalog.DownloadLog) error
	RecordImpression(ctx context.Context, adID int64) error
}

// Sink accepts analytics events from request handlers. Recorder writes them
// straight to the store; Publisher hands them to the event stream.
type Sink interface {
	Downloaded(ctx context.Context, event *RingtoneDownloaded) error
	Impression(ctx context.Context, event *AdImpression) error
}
