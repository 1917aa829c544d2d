// Package catalog holds the ringtone catalog model and the repository contract
// its stores implement.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateNumericID = errors.New("numeric id already exists")
	ErrDuplicateSlug      = errors.New("slug already exists")
)

// Ringtone is a downloadable audio file. NumericID is the short public
// identifier users type into search; ID is the internal key.
type Ringtone struct {
	ID            int64
	NumericID     string
	Name          string
	Slug          string
	Description   string
	FileKey       string
	FileSize      int64
	ThumbnailKey  string
	CategoryID    *int64
	CategoryName  string
	CategorySlug  string
	Tags          []Tag
	DownloadCount int64
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Category struct {
	ID            int64
	Name          string
	Slug          string
	Description   string
	Icon          string
	Order         int
	ParentID      *int64
	RingtoneCount int64
}

type Tag struct {
	ID   int64
	Name string
	Slug string
	// RingtoneCount is only filled by ListTags.
	RingtoneCount int64
}

// Placement is a named ad slot such as "header" or "download-page".
type Placement struct {
	ID   int64
	Name string
	Slug string
}

type Advertisement struct {
	ID            int64
	Name          string
	Code          string
	PlacementSlug string
	Active        bool
	Impressions   int64
	CreatedAt     time.Time
}

// DownloadLog is one served download.
type DownloadLog struct {
	RingtoneID int64
	IPAddress  string
	UserAgent  string
	Referer    string
	CreatedAt  time.Time
}

// DailyDownloads counts the downloads of one UTC day, formatted 2006-01-02.
type DailyDownloads struct {
	Date      string
	Downloads int64
}

// Suggestion is a compact search hit for autocomplete.
type Suggestion struct {
	ID           int64
	NumericID    string
	Name         string
	CategoryName string
}

// Repository is the persistence contract for the catalog.
type Repository interface {
	// GetRingtone resolves ref as a numeric id first, then as an internal id.
	// Inactive ringtones are reported as ErrNotFound.
	GetRingtone(ctx context.Context, ref string) (*Ringtone, error)
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
	// Autocomplete matches names containing q or numeric ids starting with it,
	// most downloaded first.
	Autocomplete(ctx context.Context, q string, limit int) ([]Suggestion, error)
	CreateRingtone(ctx context.Context, r *Ringtone, tagIDs []int64) error
	// DeleteRingtone removes the ringtone and returns it so callers can
	// clean up its stored files.
	DeleteRingtone(ctx context.Context, id int64) (*Ringtone, error)
	// FindRingtone looks up a ringtone by internal id, active or not.
	FindRingtone(ctx context.Context, id int64) (*Ringtone, error)
	// UpdateRingtone rewrites the editable fields of r and replaces its tags.
	// The numeric id, download count and creation time are left alone.
	UpdateRingtone(ctx context.Context, r *Ringtone, tagIDs []int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	ListTags(ctx context.Context) ([]Tag, error)
	UpsertCategory(ctx context.Context, c *Category) error
	UpsertTag(ctx context.Context, t *Tag) error
	// CreateTag fails with ErrDuplicateSlug when the slug is taken.
	CreateTag(ctx context.Context, t *Tag) error
	DeleteTag(ctx context.Context, id int64) error

	UpsertPlacement(ctx context.Context, p *Placement) error
	ListPlacements(ctx context.Context) ([]Placement, error)
	CreateAdvertisement(ctx context.Context, ad *Advertisement) error
	// ListAdvertisements returns every ad, newest first.
	ListAdvertisements(ctx context.Context) ([]Advertisement, error)
	GetAdvertisement(ctx context.Context, id int64) (*Advertisement, error)
	UpdateAdvertisement(ctx context.Context, ad *Advertisement) error
	DeleteAdvertisement(ctx context.Context, id int64) error
	// ActiveAd returns the newest active ad for a placement slug.
	ActiveAd(ctx context.Context, placement string) (*Advertisement, error)
	RecordImpression(ctx context.Context, adID int64) error

	// RecordDownload appends a download log and bumps the ringtone's counter.
	RecordDownload(ctx context.Context, log DownloadLog) error
	// CountDownloads counts logged downloads at or after since.
	CountDownloads(ctx context.Context, since time.Time) (int64, error)
	// DailyDownloads groups logged downloads at or after since by UTC day,
	// oldest first. Days without downloads are omitted.
	DailyDownloads(ctx context.Context, since time.Time) ([]DailyDownloads, error)

	Settings(ctx context.Context) (map[string]string, error)
	// SaveSettings upserts every key in settings.
	SaveSettings(ctx context.Context, settings map[string]string) error
}
