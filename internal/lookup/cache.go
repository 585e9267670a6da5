package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baignoire/fitmatch/internal/domain"
)

// versionKey holds the cache namespace counter. Bumping it orphans every
// cached entry at once; orphans age out by TTL.
const versionKey = "lookup:version"

// Cache memoizes lookup results in Redis under a versioned namespace. It is
// an optimization, never a dependency: every failure degrades to a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a lookup cache with the given entry TTL.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached result for a SKU, or false on a miss.
func (c *Cache) Get(ctx context.Context, sku string) (*domain.LookupResult, bool) {
	key, err := c.entryKey(ctx, sku)
	if err != nil {
		c.logger.WarnContext(ctx, "lookup cache unavailable", "error", err)
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "lookup cache read failed", "sku", sku, "error", err)
		}
		return nil, false
	}

	var result domain.LookupResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WarnContext(ctx, "corrupt lookup cache entry dropped", "sku", sku, "error", err)
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return &result, true
}

// Set stores a result under the current namespace version.
func (c *Cache) Set(ctx context.Context, sku string, result *domain.LookupResult) {
	key, err := c.entryKey(ctx, sku)
	if err != nil {
		c.logger.WarnContext(ctx, "lookup cache unavailable", "error", err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WarnContext(ctx, "lookup result not cacheable", "sku", sku, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "lookup cache write failed", "sku", sku, "error", err)
	}
}

// Invalidate bumps the namespace version, invalidating every cached entry
// wholesale. Called by the materializer after the graph changes.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("bump lookup cache version: %w", err)
	}
	return nil
}

// entryKey builds the namespaced key for a SKU. A missing version counter
// reads as version 0.
func (c *Cache) entryKey(ctx context.Context, sku string) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("read lookup cache version: %w", err)
	}
	return fmt.Sprintf("lookup:v%d:%s", version, sku), nil
}
