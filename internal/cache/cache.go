package cache

import (
	"context"
	"strings"
	"time"

	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/logger"
)

// Cache is a byte-oriented cache with per-entry TTL. Fetched repost pages
// and rendered analysis documents go through it so repeated task runs do
// not hammer the upstream.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewFromConfig picks the cache backend. A nil return means caching is off;
// callers must tolerate it.
func NewFromConfig(cfg config.Config) Cache {
	backend := strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	switch backend {
	case "", "memory":
		return NewMemoryCache()
	case "redis":
		addr := strings.TrimSpace(cfg.RedisAddr)
		if addr == "" {
			return NewMemoryCache()
		}
		rc, err := NewRedisCache(RedisOptions{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisKeyPrefix,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, using in-process cache", "err", err)
			return NewMemoryCache()
		}
		return rc
	case "none", "disabled", "off":
		return nil
	default:
		return NewMemoryCache()
	}
}

// DefaultTTL reads the configured entry lifetime.
func DefaultTTL(cfg config.Config) time.Duration {
	if cfg.CacheDefaultTTLSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(cfg.CacheDefaultTTLSec) * time.Second
}
