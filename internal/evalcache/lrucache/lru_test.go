package lrucache

import (
	"testing"

	"github.com/discochess/crux/internal/score"
)

func TestCache_GetPut(t *testing.T) {
	c, err := New(8, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"
	if _, ok := c.Get(fen); ok {
		t.Fatal("Get() on empty cache reported a hit")
	}

	c.Put(fen, score.Cp(35))
	got, ok := c.Get(fen)
	if !ok {
		t.Fatal("Get() after Put reported a miss")
	}
	if got != score.Cp(35) {
		t.Errorf("Get() = %v, want %v", got, score.Cp(35))
	}
}

func TestCache_InvalidScoresNotStored(t *testing.T) {
	c, err := New(8, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.Put("some-fen", score.Score{})
	if _, ok := c.Get("some-fen"); ok {
		t.Error("unavailable score was cached")
	}
}

func TestCache_Eviction(t *testing.T) {
	c, err := New(2, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.Put("a", score.Cp(1))
	c.Put("b", score.Cp(2))
	c.Put("c", score.Cp(3)) // evicts "a"

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry survived past capacity")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
}

func TestCache_Stats(t *testing.T) {
	c, err := New(8, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.Put("a", score.Cp(1))
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 hits / 1 miss", s)
	}
	if rate := s.HitRate(); rate < 66 || rate > 67 {
		t.Errorf("HitRate() = %v, want ~66.7", rate)
	}
}
