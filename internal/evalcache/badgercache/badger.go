// Package badgercache implements a persistent evaluation cache backed by
// BadgerDB, so evaluations survive across runs.
package badgercache

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/score"
)

// Compile-time check that Cache implements evalcache.Cache.
var _ evalcache.Cache = (*Cache)(nil)

// entry is the stored JSON representation of a score.
type entry struct {
	Kind  string `json:"kind"`
	Value int    `json:"value,omitempty"`
}

// Cache is a badger-backed evaluation cache.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) a cache database in dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger's own logging.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgercache: opening %s: %w", dir, err)
	}
	return &Cache{db: db}, nil
}

// Get retrieves a cached evaluation.
func (c *Cache) Get(fen string) (score.Score, bool) {
	var e entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fen))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return score.Score{}, false
	}
	return decode(e)
}

// Put stores an evaluation. Write failures are dropped: the cache is an
// optimization, not a system of record.
func (c *Cache) Put(fen string, s score.Score) {
	e, ok := encode(s)
	if !ok {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fen), data)
	})
}

// Each calls fn for every cached evaluation, in key order. Iteration
// stops at the first error fn returns. Entries that fail to decode are
// skipped.
func (c *Cache) Each(fn func(fen string, s score.Score) error) error {
	return c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var e entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				continue
			}
			s, ok := decode(e)
			if !ok {
				continue
			}
			if err := fn(string(item.Key()), s); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func encode(s score.Score) (entry, bool) {
	switch {
	case s.IsDraw():
		return entry{Kind: "draw"}, true
	case s.IsMate():
		n, _ := s.Mate()
		return entry{Kind: "mate", Value: n}, true
	default:
		if cp, ok := s.Cp(); ok {
			return entry{Kind: "cp", Value: cp}, true
		}
		return entry{}, false
	}
}

func decode(e entry) (score.Score, bool) {
	switch e.Kind {
	case "cp":
		return score.Cp(e.Value), true
	case "mate":
		return score.MateIn(e.Value), true
	case "draw":
		return score.Drawn(), true
	default:
		return score.Score{}, false
	}
}
