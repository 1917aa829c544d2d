package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ringtones/internal/ratelimit"
)

// fixedWindowScript increments KEYS[1] unless it already reached ARGV[1].
// The window starts on the first hit, which sets a PEXPIRE of ARGV[2] ms.
// Returns {allowed, count, pttl}.
var fixedWindowScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call("GET", KEYS[1]) or "0")

if count >= max then
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl < 0 then
		redis.call("PEXPIRE", KEYS[1], window)
		ttl = window
	end
	return {0, count, ttl}
end

count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], window)
end

local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], window)
	ttl = window
end

return {1, count, ttl}
`)

// RateLimitRedisStore is a fixed-window ratelimit.Store shared by every
// instance pointed at the same Redis.
type RateLimitRedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRateLimitRedisStore creates a Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Check atomically counts one request against key in the current fixed window.
func (r *RateLimitRedisStore) Check(ctx context.Context, key string, cfg ratelimit.Config) (ratelimit.Result, error) {
	if err := cfg.Validate(); err != nil {
		return ratelimit.Result{}, err
	}

	res, err := fixedWindowScript.Run(ctx, r.client,
		[]string{r.prefix + key},
		cfg.Max, cfg.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: %w", err)
	}

	if len(res) != 3 {
		return ratelimit.Result{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	allowed, count, ttl := res[0] == 1, res[1], res[2]

	remaining := cfg.Max - count
	if !allowed || remaining < 0 {
		remaining = 0
	}

	return ratelimit.Result{
		Allowed:   allowed,
		Limit:     cfg.Max,
		Remaining: remaining,
		ResetAt:   r.now().Add(time.Duration(ttl) * time.Millisecond),
	}, nil
}

// Reset deletes the window for key.
func (r *RateLimitRedisStore) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

var _ ratelimit.Store = (*RateLimitRedisStore)(nil)
