package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serroba/ringtones/internal/ratelimit"
	"github.com/serroba/ringtones/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestRateLimitMemoryStore_Check(t *testing.T) {
	cfg := ratelimit.Config{Window: time.Minute, Max: 3}

	t.Run("remaining decreases to zero then denies", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore(store.WithClock(clock.Now))

		for i, want := range []int64{2, 1, 0} {
			res, err := s.Check(context.Background(), "key1", cfg)

			require.NoError(t, err)
			assert.True(t, res.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, want, res.Remaining)
			assert.Equal(t, int64(3), res.Limit)
			assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
		}

		res, err := s.Check(context.Background(), "key1", cfg)

		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, int64(0), res.Remaining)
	})

	t.Run("denied requests keep the original reset time", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore(store.WithClock(clock.Now))
		start := clock.Now()

		for range 3 {
			_, _ = s.Check(context.Background(), "key1", cfg)
		}

		clock.Advance(30 * time.Second)

		res, err := s.Check(context.Background(), "key1", cfg)

		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, start.Add(time.Minute), res.ResetAt)
	})

	t.Run("window resets fully once reset time is reached", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore(store.WithClock(clock.Now))

		for range 4 {
			_, _ = s.Check(context.Background(), "key1", cfg)
		}

		clock.Advance(time.Minute)

		res, err := s.Check(context.Background(), "key1", cfg)

		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(2), res.Remaining)
		assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		for range 4 {
			_, _ = s.Check(context.Background(), "key1", cfg)
		}

		res, err := s.Check(context.Background(), "key2", cfg)

		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(2), res.Remaining, "key2 should have its own counter")
	})

	t.Run("rejects non-positive config without creating an entry", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, err := s.Check(context.Background(), "key1", ratelimit.Config{Window: 0, Max: 3})
		require.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

		_, err = s.Check(context.Background(), "key1", ratelimit.Config{Window: time.Minute, Max: 0})
		require.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

		assert.Equal(t, 0, s.Len())
	})
}

func TestRateLimitMemoryStore_Reset(t *testing.T) {
	cfg := ratelimit.Config{Window: time.Minute, Max: 1}
	s := store.NewRateLimitMemoryStore()

	_, _ = s.Check(context.Background(), "key1", cfg)

	res, _ := s.Check(context.Background(), "key1", cfg)
	require.False(t, res.Allowed)

	require.NoError(t, s.Reset(context.Background(), "key1"))

	res, err := s.Check(context.Background(), "key1", cfg)

	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitMemoryStore_Sweep(t *testing.T) {
	cfg := ratelimit.Config{Window: time.Minute, Max: 5}

	t.Run("sweeps expired windows above the threshold", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore(store.WithClock(clock.Now), store.WithSweepThreshold(3))

		for i := range 4 {
			_, _ = s.Check(context.Background(), fmt.Sprintf("old%d", i), cfg)
		}

		require.Equal(t, 4, s.Len())

		clock.Advance(2 * time.Minute)

		_, err := s.Check(context.Background(), "fresh", cfg)

		require.NoError(t, err)
		assert.Equal(t, 1, s.Len(), "only the fresh window should remain")
	})

	t.Run("keeps live windows during a sweep", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore(store.WithClock(clock.Now), store.WithSweepThreshold(2))

		_, _ = s.Check(context.Background(), "old", cfg)

		clock.Advance(2 * time.Minute)

		_, _ = s.Check(context.Background(), "live1", cfg)
		_, _ = s.Check(context.Background(), "live2", cfg)
		_, _ = s.Check(context.Background(), "live3", cfg)

		assert.Equal(t, 3, s.Len())
	})

	t.Run("does not sweep at or below the threshold", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore(store.WithClock(clock.Now), store.WithSweepThreshold(10))

		for i := range 3 {
			_, _ = s.Check(context.Background(), fmt.Sprintf("old%d", i), cfg)
		}

		clock.Advance(2 * time.Minute)

		_, _ = s.Check(context.Background(), "fresh", cfg)

		assert.Equal(t, 4, s.Len())
	})
}

func TestRateLimitMemoryStore_Concurrent(t *testing.T) {
	cfg := ratelimit.Config{Window: time.Minute, Max: 50}
	s := store.NewRateLimitMemoryStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)

	for range 200 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := s.Check(context.Background(), "shared", cfg)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 50, allowed)
}
