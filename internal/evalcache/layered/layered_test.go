package layered

import (
	"testing"

	"github.com/discochess/crux/internal/evalcache/lrucache"
	"github.com/discochess/crux/internal/score"
)

func TestCache_PromotesSlowHits(t *testing.T) {
	fast, err := lrucache.New(8, nil)
	if err != nil {
		t.Fatalf("lrucache.New() error = %v", err)
	}
	slow, err := lrucache.New(8, nil)
	if err != nil {
		t.Fatalf("lrucache.New() error = %v", err)
	}

	c := New(fast, slow)

	// Seed only the slow layer.
	slow.Put("fen", score.Cp(90))

	got, ok := c.Get("fen")
	if !ok || got != score.Cp(90) {
		t.Fatalf("Get() = %v, %v, want hit with %v", got, ok, score.Cp(90))
	}

	// The hit is promoted into the fast layer.
	if _, ok := fast.Get("fen"); !ok {
		t.Error("slow-layer hit was not promoted to the fast layer")
	}
}

func TestCache_PutWritesBothLayers(t *testing.T) {
	fast, _ := lrucache.New(8, nil)
	slow, _ := lrucache.New(8, nil)
	c := New(fast, slow)

	c.Put("fen", score.MateIn(4))

	if _, ok := fast.Get("fen"); !ok {
		t.Error("Put() missed the fast layer")
	}
	if _, ok := slow.Get("fen"); !ok {
		t.Error("Put() missed the slow layer")
	}
}

func TestCache_Miss(t *testing.T) {
	fast, _ := lrucache.New(8, nil)
	slow, _ := lrucache.New(8, nil)
	c := New(fast, slow)

	if _, ok := c.Get("unknown"); ok {
		t.Error("Get() on empty layers reported a hit")
	}
}
