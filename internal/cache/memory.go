package cache

import (
	"context"
	"sync"
	"time"
)

// Entries expire lazily: a read drops the dead entry it touches, and
// every sweepEvery writes the whole map is swept. With one write per
// crawled page that lands the sweep roughly once per collected batch,
// so a long repost walk cannot pile up expired pages.
const sweepEvery = 256

type memEntry struct {
	data     []byte
	deadline int64 // unix nanos, 0 = never expires
}

func (e memEntry) expired(now int64) bool {
	return e.deadline != 0 && now > e.deadline
}

// MemoryCache is the in-process backend, used when no redis is
// configured and as the fallback when redis is unreachable.
type MemoryCache struct {
	mu     sync.Mutex
	data   map[string]memEntry
	writes int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memEntry, 256)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	now := time.Now().UnixNano()
	c.mu.Lock()
	e, ok := c.data[key]
	if ok && e.expired(now) {
		delete(c.data, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.data...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := memEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl).UnixNano()
	}
	c.mu.Lock()
	c.data[key] = e
	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		c.sweepLocked(time.Now().UnixNano())
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// Len counts live entries; expired ones still waiting for a sweep do not
// count.
func (c *MemoryCache) Len() int {
	now := time.Now().UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.data = make(map[string]memEntry)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) sweepLocked(now int64) {
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
		}
	}
}
