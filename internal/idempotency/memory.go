package idempotency

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL = 24 * time.Hour

	cleanupInterval = time.Minute
)

type entry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCache is the single-process backend. Entries expire after the TTL
// and the oldest entry is dropped once MaxEntries is reached.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	max     int
	now     func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		max:     maxEntries,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

func (c *MemoryCache) cleanupLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.purgeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) purgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	purged := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			purged++
		}
	}
	return purged
}

func (c *MemoryCache) Get(_ context.Context, operation, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(operation, key)]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.body...), nil
}

// Set keeps the first body written for a key; later writes are ignored.
func (c *MemoryCache) Set(_ context.Context, operation, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey(operation, key)
	now := c.now()
	if e, ok := c.entries[k]; ok && now.Before(e.expiresAt) {
		return nil
	}
	if c.max > 0 && len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[k] = entry{body: append([]byte(nil), body...), expiresAt: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	close(c.stop)
	c.wg.Wait()
	return nil
}
