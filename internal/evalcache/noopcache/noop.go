// Package noopcache provides an evaluation cache that stores nothing.
// Useful for testing or when caching is not wanted.
package noopcache

import (
	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/score"
)

// Compile-time check that Cache implements evalcache.Cache.
var _ evalcache.Cache = (*Cache)(nil)

// Cache discards everything.
type Cache struct{}

// New creates a new no-op cache.
func New() *Cache {
	return &Cache{}
}

func (c *Cache) Get(fen string) (score.Score, bool) { return score.Score{}, false }
func (c *Cache) Put(fen string, s score.Score)      {}
func (c *Cache) Close() error                       { return nil }
