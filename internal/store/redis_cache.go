package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ringtones/internal/catalog"
	"go.uber.org/zap"
)

// CatalogRedisCache wraps a catalog.Repository with a Redis read-through
// cache for ringtone lookups. Everything else goes straight to the wrapped
// repository. Cached download counts may lag by up to ttl.
type CatalogRedisCache struct {
	catalog.Repository

	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogRedisCache creates a new Redis-cached catalog decorator.
func NewCatalogRedisCache(
	repo catalog.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *CatalogRedisCache {
	return &CatalogRedisCache{
		Repository: repo,
		client:     client,
		prefix:     "ringtone:",
		ttl:        ttl,
		logger:     logger,
	}
}

// GetRingtone checks the cache first and populates it on a miss.
func (c *CatalogRedisCache) GetRingtone(ctx context.Context, ref string) (*catalog.Ringtone, error) {
	if r, ok := c.getFromCache(ctx, ref); ok {
		return r, nil
	}

	r, err := c.Repository.GetRingtone(ctx, ref)
	if err != nil {
		return nil, err
	}

	c.cache(ctx, ref, r)

	return r, nil
}

// DeleteRingtone deletes from the wrapped repository and evicts both refs.
func (c *CatalogRedisCache) DeleteRingtone(ctx context.Context, id int64) (*catalog.Ringtone, error) {
	r, err := c.Repository.DeleteRingtone(ctx, id)
	if err != nil {
		return nil, err
	}

	c.evict(ctx, r.ID, r.NumericID)

	return r, nil
}

// UpdateRingtone updates the wrapped repository and evicts both refs.
func (c *CatalogRedisCache) UpdateRingtone(ctx context.Context, r *catalog.Ringtone, tagIDs []int64) error {
	if err := c.Repository.UpdateRingtone(ctx, r, tagIDs); err != nil {
		return err
	}

	c.evict(ctx, r.ID, r.NumericID)

	return nil
}

func (c *CatalogRedisCache) evict(ctx context.Context, id int64, numericID string) {
	keys := []string{c.prefix + strconv.FormatInt(id, 10)}
	if numericID != "" {
		keys = append(keys, c.prefix+numericID)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("failed to evict ringtone from cache", zap.Int64("id", id), zap.Error(err))
	}
}

func (c *CatalogRedisCache) getFromCache(ctx context.Context, ref string) (*catalog.Ringtone, bool) {
	data, err := c.client.Get(ctx, c.prefix+ref).Bytes()
	if err != nil {
		return nil, false
	}

	var r catalog.Ringtone
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}

	return &r, true
}

func (c *CatalogRedisCache) cache(ctx context.Context, ref string, r *catalog.Ringtone) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, c.prefix+ref, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache ringtone", zap.String("ref", ref), zap.Error(err))
	}
}

// Shutdown is a no-op for CatalogRedisCache (client managed externally).
func (c *CatalogRedisCache) Shutdown() error {
	return nil
}

// Compile-time check.
var _ catalog.Repository = (*CatalogRedisCache)(nil)
