// Package cache provides a Redis-backed query-result cache with
// singleflight deduplication, keyed by the normalised query text, ranker,
// and topK so that repeated queries against a static index skip rescoring.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/processor"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/scorer"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/config"
	pkgredis "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "query:"

// QueryCache wraps a Redis client with singleflight de-duplication and
// hit/miss counters.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a QueryCache backed by the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get reads a cached query result. Returns (nil, false) on miss or error.
func (c *QueryCache) Get(ctx context.Context, query string, ranker scorer.Ranker, topK int) (*processor.Result, bool) {
	key := c.buildKey(query, ranker, topK)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var result processor.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

// Set stores a query result in the cache with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, query string, ranker scorer.Ranker, topK int, result *processor.Result) {
	key := c.buildKey(query, ranker, topK)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result if available; otherwise invokes
// computeFn, caches the outcome, and returns it. A singleflight group
// prevents thundering-herd cache-miss storms when many callers ask for the
// same uncached query concurrently.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	ranker scorer.Ranker,
	topK int,
	computeFn func() (*processor.Result, error),
) (*processor.Result, bool, error) {
	if result, ok := c.Get(ctx, query, ranker, topK); ok {
		return result, true, nil
	}
	key := c.buildKey(query, ranker, topK)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, query, ranker, topK); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, ranker, topK, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*processor.Result), false, nil
}

// Invalidate flushes all query-cache keys from Redis.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// Stats returns the cumulative hit and miss counters.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey produces a deterministic SHA-256 cache key for the normalised
// query, ranker, and topK. Index-time and query-time tokenisation is
// already byte-for-byte stable, so normalisation here only needs to fold
// whitespace and case, not re-derive terms.
func (c *QueryCache) buildKey(query string, ranker scorer.Ranker, topK int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	raw := fmt.Sprintf("%s:ranker=%s:k=%d", normalized, ranker, topK)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
