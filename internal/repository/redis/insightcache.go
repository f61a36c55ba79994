package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const insightCachePrefix = "insights:"

// InsightCache is the Redis-backed alternative to the filesystem insight
// cache, selected by redis.enabled. Entries carry no TTL: a present entry
// is authoritative until explicitly invalidated.
type InsightCache struct {
	client *Client
}

type cacheEntry struct {
	Insights string `json:"insights"`
}

// NewInsightCache creates a new insight cache
func NewInsightCache(client *Client) *InsightCache {
	return &InsightCache{client: client}
}

// Get retrieves cached insights for a key; "" means miss.
func (c *InsightCache) Get(ctx context.Context, key string) (string, error) {
	data, err := c.client.rdb.Get(ctx, insightCachePrefix+key).Bytes()
	if err != nil {
		return "", nil // cache miss
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return strings.TrimSpace(entry.Insights), nil
}

// Set caches insights under a key.
func (c *InsightCache) Set(ctx context.Context, key, insights string) error {
	data, err := json.Marshal(cacheEntry{Insights: insights})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return c.client.rdb.Set(ctx, insightCachePrefix+key, data, 0).Err()
}

// Delete removes a cached entry.
func (c *InsightCache) Delete(ctx context.Context, key string) error {
	return c.client.rdb.Del(ctx, insightCachePrefix+key).Err()
}

// FlushAll removes all cached insights.
func (c *InsightCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := insightCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
