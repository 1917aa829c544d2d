package analytics

import "time"

const (
	TopicRingtoneDownloaded = "ringtone.downloaded"
	TopicAdImpression       = "ad.impression"
)

// RingtoneDownloaded is emitted after a ringtone file has been served.
type RingtoneDownloaded struct {
	RingtoneID int64     `json:"ringtoneId"`
	NumericID  string    `json:"numericId"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AdImpression is emitted when a client reports an ad was shown.
type AdImpression struct {
	AdID       int64     `json:"adId"`
	OccurredAt time.Time `json:"occurredAt"`
}
