package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidNumericID = errors.New("numeric id must contain only digits")

const generateAttempts = 3

// NewRingtone is the input for Service.Create.
type NewRingtone struct {
	Name         string
	NumericID    string
	Description  string
	CategoryID   *int64
	TagIDs       []int64
	FileKey      string
	FileSize     int64
	ThumbnailKey string
}

// Service creates ringtones, assigning numeric ids when none is given.
type Service struct {
	repo       Repository
	generateID IDGenerator
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, generator IDGenerator, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		generateID: generator,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create stores a new active ringtone. A caller-chosen numeric id that is
// already taken fails with ErrDuplicateNumericID; generated ids are retried.
func (s *Service) Create(ctx context.Context, in NewRingtone) (*Ringtone, error) {
	if in.NumericID != "" && !IsNumericID(in.NumericID) {
		return nil, ErrInvalidNumericID
	}

	attempts := 1
	if in.NumericID == "" {
		attempts = generateAttempts
	}

	var err error

	for range attempts {
		numericID := in.NumericID
		if numericID == "" {
			numericID = s.generateID()
		}

		now := s.now().UTC()
		r := &Ringtone{
			NumericID:    numericID,
			Name:         in.Name,
			Slug:         Slugify(in.Name),
			Description:  in.Description,
			FileKey:      in.FileKey,
			FileSize:     in.FileSize,
			ThumbnailKey: in.ThumbnailKey,
			CategoryID:   in.CategoryID,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.repo.CreateRingtone(ctx, r, in.TagIDs)
		if err == nil {
			return r, nil
		}

		if !errors.Is(err, ErrDuplicateNumericID) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("create ringtone: %w", err)
}

// RingtoneUpdate replaces the editable fields of a ringtone. Empty file keys
// keep the current files and a nil Active keeps the current state.
type RingtoneUpdate struct {
	Name         string
	Description  string
	CategoryID   *int64
	TagIDs       []int64
	Active       *bool
	FileKey      string
	FileSize     int64
	ThumbnailKey string
}

// Update applies in to current and returns the stored result.
func (s *Service) Update(ctx context.Context, current *Ringtone, in RingtoneUpdate) (*Ringtone, error) {
	r := *current
	r.Tags = nil
	r.Name = in.Name
	r.Slug = Slugify(in.Name)
	r.Description = in.Description
	r.CategoryID = in.CategoryID
	r.UpdatedAt = s.now().UTC()

	if in.Active != nil {
		r.Active = *in.Active
	}

	if in.FileKey != "" {
		r.FileKey = in.FileKey
		r.FileSize = in.FileSize
	}

	if in.ThumbnailKey != "" {
		r.ThumbnailKey = in.ThumbnailKey
	}

	if err := s.repo.UpdateRingtone(ctx, &r, in.TagIDs); err != nil {
		return nil, err
	}

	return s.repo.FindRingtone(ctx, r.ID)
}
