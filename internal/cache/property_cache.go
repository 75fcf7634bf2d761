// Package cache keeps listing pages in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshua-takyi/nestly/internal/models"
)

const (
	propertyKeyPrefix = "property:"
	scanCount         = 100
)

type propertyPage struct {
	Items []*models.Property `json:"items"`
	Total int64              `json:"total"`
}

// PropertyCache stores listing pages keyed by a hash of the query. Redis
// failures degrade to cache misses.
type PropertyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewPropertyCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *PropertyCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyCache{client: client, ttl: ttl, logger: logger}
}

func PropertyKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return propertyKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *PropertyCache) GetPage(ctx context.Context, query string) ([]*models.Property, int64, bool) {
	key := PropertyKey(query)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("property cache read failed", "key", key, "error", err)
		}
		return nil, 0, false
	}

	var page propertyPage
	if err := json.Unmarshal(raw, &page); err != nil {
		c.logger.Warn("property cache entry is corrupt", "key", key, "error", err)
		return nil, 0, false
	}
	return page.Items, page.Total, true
}

func (c *PropertyCache) SetPage(ctx context.Context, query string, items []*models.Property, total int64) {
	key := PropertyKey(query)
	raw, err := json.Marshal(propertyPage{Items: items, Total: total})
	if err != nil {
		c.logger.Warn("property cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("property cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached listing page.
func (c *PropertyCache) Invalidate(ctx context.Context) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.client.Scan(ctx, cursor, propertyKeyPrefix+"*", scanCount).Result()
		if err != nil {
			c.logger.Warn("property cache scan failed", "error", err)
			return
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("property cache invalidation failed", "keys", len(keys), "error", err)
		return
	}
	c.logger.Debug("property cache invalidated", "keys", len(keys))
}
