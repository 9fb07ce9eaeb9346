package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
)

// SearchCache stores snippet text per search query for the lifetime of a run.
type SearchCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, snippets string) error
}

type InMemorySearchCache struct {
	mu    sync.RWMutex
	cache map[string]string
	hits  int
}

func NewInMemorySearchCache() *InMemorySearchCache {
	return &InMemorySearchCache{
		cache: make(map[string]string),
	}
}

func (c *InMemorySearchCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snippets, ok := c.cache[key]
	if ok {
		c.hits++
	}
	return snippets, ok
}

func (c *InMemorySearchCache) Set(ctx context.Context, key string, snippets string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = snippets
	return nil
}

func (c *InMemorySearchCache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

// GenerateCacheKey normalizes the query so that case and surrounding
// whitespace do not produce distinct entries.
func GenerateCacheKey(query string, num int) string {
	normalized := strings.ToLower(strings.TrimSpace(query)) + "\x00" + strconv.Itoa(num)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}
