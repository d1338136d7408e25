// Package cache memoises fusion responses in Redis. Keys include the index
// generation, so a rebuild makes older entries unreachable even before they
// are invalidated.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/redis"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cacheable search.
type Key struct {
	Query      string
	Limit      int
	Mode       fusion.Mode
	Alpha      float64
	Generation uint64
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  logger.WithComponent("query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, k Key) (*fusion.Response, bool) {
	key := buildKey(k)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var resp fusion.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", k.Query, "key", key)
	return &resp, true
}

// Set stores resp. Degraded responses are skipped so a transient semantic
// outage is not replayed after the channel recovers.
func (c *QueryCache) Set(ctx context.Context, k Key, resp *fusion.Response) {
	if resp.Degraded {
		return
	}
	key := buildKey(k)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for k or computes it once for
// all concurrent callers with the same key.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	k Key,
	computeFn func() (*fusion.Response, error),
) (*fusion.Response, bool, error) {
	if resp, ok := c.Get(ctx, k); ok {
		return resp, true, nil
	}
	val, err, _ := c.group.Do(buildKey(k), func() (any, error) {
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, k, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*fusion.Response), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(k Key) string {
	raw := fmt.Sprintf("%s|limit=%d|mode=%s|alpha=%.4f|gen=%d",
		normalizeQuery(k.Query), k.Limit, k.Mode, k.Alpha, k.Generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery lower-cases and collapses whitespace. Word order is kept
// because fuzzy correction is positional.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
