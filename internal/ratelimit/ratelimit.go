package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a Config has a non-positive window or max.
var ErrInvalidConfig = errors.New("invalid rate limit config")

// Config is a fixed-window quota: at most Max requests per Window.
type Config struct {
	Window time.Duration
	Max    int64
}

// Validate reports whether both fields are positive.
func (c Config) Validate() error {
	if c.Window <= 0 || c.Max <= 0 {
		return fmt.Errorf("%w: window=%s max=%d", ErrInvalidConfig, c.Window, c.Max)
	}

	return nil
}

// Result is the outcome of a single quota check.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RetryAfter returns how long a denied caller should wait, rounded up to a whole second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}

	d := r.ResetAt.Sub(now)

	return (d + time.Second - 1) / time.Second * time.Second
}

// Store keeps one fixed-window counter per key.
type Store interface {
	// Check counts a request against key's window. Denied requests do not
	// increment the counter, so it never exceeds cfg.Max inside a window.
	Check(ctx context.Context, key string, cfg Config) (Result, error)

	// Reset drops the window for key.
	Reset(ctx context.Context, key string) error
}
