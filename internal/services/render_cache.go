package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"llmboundary/internal/charts"
	"llmboundary/internal/logging"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const renderCacheKeyPrefix = "llmboundary:extract:"

// RenderCache keeps extraction results keyed by the answer text. Answers are
// re-rendered on every view, so the same text is extracted many times.
// The memory tier is per process; the optional Redis tier is shared by replicas.
type RenderCache struct {
	memory  *cache.Cache
	redis   *RedisService
	ttl     time.Duration
	metrics *Metrics
	log     *logrus.Entry
}

// NewRenderCache creates a render cache. redis may be nil.
func NewRenderCache(ttl time.Duration, redis *RedisService, metrics *Metrics, log *logrus.Entry) *RenderCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if log == nil {
		log = logging.Discard()
	}
	return &RenderCache{
		memory:  cache.New(ttl, 10*time.Minute),
		redis:   redis,
		ttl:     ttl,
		metrics: metrics,
		log:     log,
	}
}

// RenderCacheKey returns the cache key of an answer text
func RenderCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return renderCacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached extraction of text. A Redis hit is copied into memory.
func (c *RenderCache) Get(ctx context.Context, text string) (charts.Extraction, bool) {
	key := RenderCacheKey(text)

	if v, found := c.memory.Get(key); found {
		if extraction, ok := v.(charts.Extraction); ok {
			c.metrics.RecordCacheLookup("memory", true)
			return extraction, true
		}
	}
	c.metrics.RecordCacheLookup("memory", false)

	if c.redis == nil {
		return charts.Extraction{}, false
	}

	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if err != ErrCacheMiss {
			c.log.WithError(err).Warn("⚠️  [RENDER-CACHE] Redis lookup failed")
		}
		c.metrics.RecordCacheLookup("redis", false)
		return charts.Extraction{}, false
	}

	var extraction charts.Extraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		c.log.WithError(err).Warn("⚠️  [RENDER-CACHE] Discarding undecodable Redis entry")
		c.metrics.RecordCacheLookup("redis", false)
		return charts.Extraction{}, false
	}
	c.metrics.RecordCacheLookup("redis", true)
	c.memory.Set(key, extraction, cache.DefaultExpiration)
	return extraction, true
}

// Set stores the extraction of text in every tier
func (c *RenderCache) Set(ctx context.Context, text string, extraction charts.Extraction) {
	key := RenderCacheKey(text)
	c.memory.Set(key, extraction, cache.DefaultExpiration)

	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(extraction)
	if err != nil {
		c.log.WithError(err).Warn("⚠️  [RENDER-CACHE] Failed to encode extraction")
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl); err != nil {
		c.log.WithError(err).Warn("⚠️  [RENDER-CACHE] Redis write failed")
	}
}

// Len returns the number of entries in the memory tier
func (c *RenderCache) Len() int {
	return c.memory.ItemCount()
}
