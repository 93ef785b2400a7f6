// Package layered combines a fast in-memory cache with a slower persistent
// one. Reads check the fast layer first and promote slow-layer hits; writes
// go to both.
package layered

import (
	"go.uber.org/multierr"

	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/score"
)

// Compile-time check that Cache implements evalcache.Cache.
var _ evalcache.Cache = (*Cache)(nil)

// Cache layers a fast cache over a slow one.
type Cache struct {
	fast evalcache.Cache
	slow evalcache.Cache
}

// New creates a layered cache.
func New(fast, slow evalcache.Cache) *Cache {
	return &Cache{fast: fast, slow: slow}
}

// Get checks the fast layer, then the slow layer, promoting hits.
func (c *Cache) Get(fen string) (score.Score, bool) {
	if s, ok := c.fast.Get(fen); ok {
		return s, true
	}
	if s, ok := c.slow.Get(fen); ok {
		c.fast.Put(fen, s)
		return s, true
	}
	return score.Score{}, false
}

// Put stores the evaluation in both layers.
func (c *Cache) Put(fen string, s score.Score) {
	c.fast.Put(fen, s)
	c.slow.Put(fen, s)
}

// Close closes both layers.
func (c *Cache) Close() error {
	return multierr.Append(c.fast.Close(), c.slow.Close())
}
