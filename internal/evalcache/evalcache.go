// Package evalcache memoizes position evaluations keyed by normalized FEN,
// so repeated positions (transpositions, shared openings, reruns) skip the
// engine entirely.
package evalcache

import "github.com/discochess/crux/internal/score"

// Cache defines the interface for evaluation caches.
// Implementations must be safe for concurrent use by pool workers.
type Cache interface {
	// Get retrieves a cached evaluation for a normalized FEN.
	Get(fen string) (score.Score, bool)

	// Put stores an evaluation. Invalid scores must not be stored.
	Put(fen string, s score.Score)

	// Close releases any resources held by the cache.
	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
