package butler

import (
	"context"
	"log/slog"

	"ripple/internal/fetchcache"
	"ripple/internal/logging"
)

// CachedClient decorates a Fetcher with the TTL response cache. The fetch
// contract is unchanged; a cache hit skips the network entirely, making
// repeated fetches of the same dataset idempotent.
type CachedClient struct {
	inner  Fetcher
	cache  *fetchcache.Cache
	logger *slog.Logger
}

// NewCachedClient wraps inner with cache. A nil cache returns inner's
// behavior unchanged through the decorator.
func NewCachedClient(inner Fetcher, cache *fetchcache.Cache, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CachedClient{
		inner:  inner,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "butler"),
	}
}

// Fetch serves from the cache when possible and stores successful fetches.
// Errors are never cached.
func (c *CachedClient) Fetch(ctx context.Context, req Request) (*Result, error) {
	if c.cache == nil {
		return c.inner.Fetch(ctx, req)
	}

	key := req.CacheKey()
	if raw, found := c.cache.Lookup(key); found {
		result, err := decodeResult(req, raw)
		if err == nil {
			result.FromCache = true
			return result, nil
		}
		// Undecodable entry: drop it and fall through to the network.
		c.logger.Warn("discarding corrupt cache entry",
			logging.String("key", key),
			logging.Error(err))
		c.cache.Remove(key)
	}

	result, err := c.inner.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Raw) > 0 {
		if err := c.cache.Store(key, result.Raw); err != nil {
			c.logger.Warn("failed to cache fetch result",
				logging.String("key", key),
				logging.Error(err))
		}
	}
	return result, nil
}
