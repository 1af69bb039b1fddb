package contextcache

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCache keeps snapshots in a process-local map. Used for testing
// and single-instance development when Redis is not configured.
type MemoryCache struct {
	summarizer Summarizer

	mu        sync.RWMutex
	snapshots map[string]string
}

// NewMemoryCache creates an in-memory context cache.
func NewMemoryCache(summarizer Summarizer) *MemoryCache {
	return &MemoryCache{
		summarizer: summarizer,
		snapshots:  make(map[string]string),
	}
}

func (c *MemoryCache) Refresh(ctx context.Context, userID string) error {
	summary, err := c.summarizer.Summary(ctx, userID)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", userID, err)
	}
	text, err := BuildSnapshot(summary)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshots[userID] = text
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, userID string) (string, error) {
	c.mu.RLock()
	text, ok := c.snapshots[userID]
	c.mu.RUnlock()
	if ok {
		return text, nil
	}

	if err := c.Refresh(ctx, userID); err != nil {
		return "", err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots[userID], nil
}
