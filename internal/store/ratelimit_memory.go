package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/ringtones/internal/ratelimit"
)

// DefaultSweepThreshold is the entry count above which expired windows are
// swept inline during Check.
const DefaultSweepThreshold = 10_000

type window struct {
	count   int64
	resetAt time.Time
}

// RateLimitMemoryStore is an in-process fixed-window implementation of ratelimit.Store.
// It only bounds a single process's view; use RateLimitRedisStore when
// several instances serve the same clients.
type RateLimitMemoryStore struct {
	mu             sync.Mutex
	windows        map[string]*window
	now            func() time.Time
	sweepThreshold int
}

// MemoryOption configures a RateLimitMemoryStore.
type MemoryOption func(*RateLimitMemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *RateLimitMemoryStore) { s.now = now }
}

// WithSweepThreshold overrides the entry count that triggers a sweep.
func WithSweepThreshold(n int) MemoryOption {
	return func(s *RateLimitMemoryStore) { s.sweepThreshold = n }
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore(opts ...MemoryOption) *RateLimitMemoryStore {
	s := &RateLimitMemoryStore{
		windows:        make(map[string]*window),
		now:            time.Now,
		sweepThreshold: DefaultSweepThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Check counts one request against key in the current fixed window.
func (s *RateLimitMemoryStore) Check(_ context.Context, key string, cfg ratelimit.Config) (ratelimit.Result, error) {
	if err := cfg.Validate(); err != nil {
		return ratelimit.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if len(s.windows) > s.sweepThreshold {
		s.sweep(now)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(cfg.Window)}
		s.windows[key] = w

		return ratelimit.Result{
			Allowed:   true,
			Limit:     cfg.Max,
			Remaining: cfg.Max - 1,
			ResetAt:   w.resetAt,
		}, nil
	}

	if w.count >= cfg.Max {
		return ratelimit.Result{
			Allowed:   false,
			Limit:     cfg.Max,
			Remaining: 0,
			ResetAt:   w.resetAt,
		}, nil
	}

	w.count++

	return ratelimit.Result{
		Allowed:   true,
		Limit:     cfg.Max,
		Remaining: cfg.Max - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

// Reset forgets the window for key.
func (s *RateLimitMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)

	return nil
}

// Len returns the number of tracked windows, expired ones included.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}

// sweep must be called with mu held.
func (s *RateLimitMemoryStore) sweep(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
