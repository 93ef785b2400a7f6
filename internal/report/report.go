// Package report computes per-game summary statistics over an evaluation
// trajectory, giving readers a feel for how turbulent a game was beyond
// the individual critical moments.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/discochess/crux/internal/score"
)

// Summary describes the evaluation swings of one game. A swing is the
// absolute change between consecutive valid evaluations, in centipawns
// from White's perspective.
type Summary struct {
	// Swings is the number of measurable swings (pairs of consecutive
	// valid evaluations).
	Swings int `json:"swings"`

	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`

	// P90 is the 90th-percentile swing.
	P90 float64 `json:"p90"`
}

// Summarize computes swing statistics for a White-POV trajectory.
// Unavailable entries are skipped: a swing is measured between each valid
// evaluation and the nearest earlier valid one.
func Summarize(trajectory []score.Score) Summary {
	var swings []float64
	prev := -1
	for i, s := range trajectory {
		if !s.Valid() {
			continue
		}
		if prev >= 0 {
			delta := float64(s.Signed() - trajectory[prev].Signed())
			if delta < 0 {
				delta = -delta
			}
			swings = append(swings, delta)
		}
		prev = i
	}

	if len(swings) == 0 {
		return Summary{}
	}

	sum := Summary{
		Swings: len(swings),
		Mean:   stat.Mean(swings, nil),
	}
	if len(swings) > 1 {
		sum.StdDev = stat.StdDev(swings, nil)
	}
	for _, v := range swings {
		if v > sum.Max {
			sum.Max = v
		}
	}

	sorted := append([]float64(nil), swings...)
	sort.Float64s(sorted)
	sum.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)

	return sum
}
