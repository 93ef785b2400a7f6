package badgercache

import (
	"errors"
	"testing"

	"github.com/discochess/crux/internal/score"
)

func TestCache_RoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	tests := []struct {
		name string
		fen  string
		s    score.Score
	}{
		{"centipawns", "fen-cp", score.Cp(125)},
		{"negative centipawns", "fen-neg", score.Cp(-300)},
		{"mate", "fen-mate", score.MateIn(3)},
		{"mated", "fen-mated", score.MateIn(-5)},
		{"draw", "fen-draw", score.Drawn()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Put(tt.fen, tt.s)
			got, ok := c.Get(tt.fen)
			if !ok {
				t.Fatalf("Get(%q) missed after Put", tt.fen)
			}
			if got != tt.s {
				t.Errorf("Get(%q) = %v, want %v", tt.fen, got, tt.s)
			}
		})
	}
}

func TestCache_MissingKey(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("never-stored"); ok {
		t.Error("Get() on missing key reported a hit")
	}
}

func TestCache_UnavailableNotStored(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	c.Put("fen", score.Score{})
	if _, ok := c.Get("fen"); ok {
		t.Error("unavailable score was persisted")
	}
}

func TestCache_PersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	c.Put("fen", score.Cp(55))
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("fen")
	if !ok || got != score.Cp(55) {
		t.Errorf("Get() after reopen = %v, %v, want %v", got, ok, score.Cp(55))
	}
}

func TestCache_Each(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	want := map[string]score.Score{
		"fen-a": score.Cp(40),
		"fen-b": score.MateIn(2),
		"fen-c": score.Drawn(),
	}
	for fen, s := range want {
		c.Put(fen, s)
	}

	got := make(map[string]score.Score)
	err = c.Each(func(fen string, s score.Score) error {
		got[fen] = s
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Each() visited %d entries, want %d", len(got), len(want))
	}
	for fen, s := range want {
		if got[fen] != s {
			t.Errorf("Each() saw %q = %v, want %v", fen, got[fen], s)
		}
	}

	stop := errors.New("stop")
	var visited int
	err = c.Each(func(string, score.Score) error {
		visited++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Each() error = %v, want %v", err, stop)
	}
	if visited != 1 {
		t.Errorf("Each() visited %d entries after stop, want 1", visited)
	}
}
