// Package classify detects critical moments in a game's evaluation
// trajectory: plies where the position moves from approximately balanced
// to decisively favoring one side.
package classify

import (
	"github.com/discochess/crux/internal/pgn"
	"github.com/discochess/crux/internal/score"
)

// Default thresholds in centipawns. They are policy, not derived
// constants; callers override them through Config.
const (
	DefaultBalanceBand       = 50
	DefaultDecisiveThreshold = 200
)

// Config holds the classification thresholds.
type Config struct {
	// BalanceBand bounds "approximately equal": a ply is a candidate only
	// when |evaluation before the move| <= BalanceBand. Inclusive.
	BalanceBand int

	// DecisiveThreshold defines a decisive advantage: a candidate ply is
	// critical when |evaluation after the move| >= DecisiveThreshold.
	// Inclusive.
	DecisiveThreshold int
}

// Default returns the default thresholds.
func Default() Config {
	return Config{
		BalanceBand:       DefaultBalanceBand,
		DecisiveThreshold: DefaultDecisiveThreshold,
	}
}

// Moment is one detected critical moment.
type Moment struct {
	// Ply is the 1-based ply index of the move that crossed the threshold.
	Ply int `json:"ply"`

	// Move is the move played, in standard algebraic notation.
	Move string `json:"move"`

	// Before and After are the evaluations around the move, from White's
	// perspective.
	Before score.Score `json:"eval_before"`
	After  score.Score `json:"eval_after"`

	// SideFavored is "white" or "black", the side the swing favors.
	SideFavored string `json:"side_favored"`
}

// Moments scans one game's trajectory and returns its critical moments in
// ply order. trajectory[k] is the evaluation of the position after k plies
// (trajectory[0] is the initial position) from White's perspective;
// invalid entries mark positions whose evaluation was unavailable. plies
// and trajectory come from the same game, len(trajectory) == len(plies)+1.
//
// A ply qualifies when the position before it was inside the balance band
// and the position after it is at or beyond the decisive threshold. The
// before-anchor is the nearest earlier valid evaluation, so unavailable
// entries do not break the comparison window. Already-decisive positions
// are never candidates. Deterministic: the same inputs always produce the
// same moments.
func Moments(cfg Config, plies []pgn.Ply, trajectory []score.Score) []Moment {
	var moments []Moment

	for p := 1; p < len(trajectory) && p <= len(plies); p++ {
		after := trajectory[p]
		if !after.Valid() {
			continue
		}

		before, ok := anchor(trajectory, p-1)
		if !ok {
			continue
		}

		if abs(before.Signed()) > cfg.BalanceBand {
			continue
		}
		if abs(after.Signed()) < cfg.DecisiveThreshold {
			continue
		}

		moments = append(moments, Moment{
			Ply:         p,
			Move:        plies[p-1].SAN,
			Before:      before,
			After:       after,
			SideFavored: sideFavored(after),
		})
	}

	return moments
}

// anchor finds the nearest valid evaluation at or before index i.
func anchor(trajectory []score.Score, i int) (score.Score, bool) {
	for ; i >= 0; i-- {
		if trajectory[i].Valid() {
			return trajectory[i], true
		}
	}
	return score.Score{}, false
}

func sideFavored(s score.Score) string {
	if s.Signed() > 0 {
		return "white"
	}
	return "black"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
