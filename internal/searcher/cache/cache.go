// Package cache memoises enriched search results in Redis. Keys embed the
// index generation, so a rebuild makes every earlier entry unreachable even
// before it is invalidated.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searchdb"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/redis"
)

const keyPrefix = "fabric-search:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, query string) (*searchdb.Results, bool) {
	key := Key(generation, query)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result searchdb.Results
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	result.Query = query
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, result *searchdb.Results) {
	key := Key(result.Generation, query)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for query at generation, or runs
// compute once for all concurrent callers asking for the same key.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	query string,
	compute func() (*searchdb.Results, error),
) (*searchdb.Results, bool, error) {
	start := time.Now()
	if result, ok := c.Get(ctx, generation, query); ok {
		if c.metrics != nil {
			c.metrics.SearchLatency.WithLabelValues("hit").Observe(time.Since(start).Seconds())
		}
		return result, true, nil
	}
	key := Key(generation, query)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*searchdb.Results), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// OnRebuild drops every cached result once a new index generation is live.
func (c *QueryCache) OnRebuild(ctx context.Context, info searchdb.RebuildInfo) {
	if _, err := c.Invalidate(ctx); err != nil {
		c.logger.Warn("post-rebuild invalidation failed", "generation", info.Generation, "error", err)
	}
}

type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
	Keys    int64   `json:"keys"`
}

func (c *QueryCache) Stats(ctx context.Context) Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	s.Total = s.Hits + s.Misses
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	keys, err := c.backend.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		c.logger.Warn("counting cache keys failed", "error", err)
		keys = -1
	}
	s.Keys = keys
	return s
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Key derives the cache key of query at an index generation.
func Key(generation uint64, query string) string {
	hash := sha256.Sum256([]byte(Normalize(query)))
	return fmt.Sprintf("%sg%d:%x", keyPrefix, generation, hash[:16])
}

// Normalize collapses whitespace and sorts tokens. Tokens are case
// sensitive and duplicates are kept since each one adds to the score.
func Normalize(query string) string {
	tokens := strings.Fields(query)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
