package fsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InsightCache stores generated insights as {hash}.json files shaped
// {"insights": string}. Writers race last-write-wins; there is no locking.
type InsightCache struct {
	dir string
}

type cacheEntry struct {
	Insights string `json:"insights"`
}

func NewInsightCache(dir string) (*InsightCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache folder: %w", err)
	}
	return &InsightCache{dir: dir}, nil
}

func (c *InsightCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached insights for a key, or "" on a miss. A present
// entry with empty content also reads as a miss.
func (c *InsightCache) Get(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", nil // cache miss
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return strings.TrimSpace(entry.Insights), nil
}

// Set writes an entry for a key.
func (c *InsightCache) Set(ctx context.Context, key, insights string) error {
	data, err := json.Marshal(cacheEntry{Insights: insights})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry; deleting an absent key is not an error.
func (c *InsightCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// FlushAll removes every cached entry and returns how many were deleted.
func (c *InsightCache) FlushAll(ctx context.Context) (int64, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache folder: %w", err)
	}

	var deleted int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
