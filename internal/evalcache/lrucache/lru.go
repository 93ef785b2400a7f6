// Package lrucache implements an in-memory LRU evaluation cache.
package lrucache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/score"
	"github.com/discochess/crux/internal/stats"
)

// Compile-time check that Cache implements evalcache.Cache.
var _ evalcache.Cache = (*Cache)(nil)

// Cache is a thread-safe in-memory LRU evaluation cache.
type Cache struct {
	inner     *lru.Cache[string, score.Score]
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an LRU cache holding up to capacity evaluations.
// The collector is optional; if nil, a no-op collector is used.
func New(capacity int, collector stats.Collector) (*Cache, error) {
	inner, err := lru.New[string, score.Score](capacity)
	if err != nil {
		return nil, err
	}
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Cache{inner: inner, collector: collector}, nil
}

// Get retrieves a cached evaluation.
func (c *Cache) Get(fen string) (score.Score, bool) {
	if s, ok := c.inner.Get(fen); ok {
		c.hits.Add(1)
		c.collector.IncCounter(stats.MetricCacheHits, 1)
		return s, true
	}
	c.misses.Add(1)
	c.collector.IncCounter(stats.MetricCacheMisses, 1)
	return score.Score{}, false
}

// Put stores an evaluation.
func (c *Cache) Put(fen string, s score.Score) {
	if !s.Valid() {
		return
	}
	c.inner.Add(fen, s)
	c.collector.SetGauge(stats.MetricCacheSize, int64(c.inner.Len()))
}

// Close is a no-op for the in-memory cache.
func (c *Cache) Close() error { return nil }

// Stats returns current cache statistics.
func (c *Cache) Stats() evalcache.Stats {
	return evalcache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.inner.Len(),
	}
}
