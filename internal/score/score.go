// Package score defines the evaluation score representation shared by the
// analysis pipeline: a tagged value that is either a centipawn figure, a
// forced mate distance, a draw, or unavailable.
package score

import "strconv"

// MateValue is the centipawn-equivalent magnitude a forced mate folds to
// for threshold comparisons. Mate in n folds to ±(MateValue - n) so that
// shorter mates order above longer ones.
const MateValue = 10000

// Kind tags the variant held by a Score.
type Kind uint8

const (
	// Unavailable marks a position whose evaluation could not be produced.
	// It is the zero value of Kind.
	Unavailable Kind = iota

	// Centipawns is a numeric evaluation in centipawns.
	Centipawns

	// Mate is a forced mate in a known number of moves.
	Mate

	// Draw is a terminal or tablebase draw, ordered as zero.
	Draw
)

// Score is an evaluation from the perspective of the side to move in the
// evaluated position, as engines report it. The zero value is Unavailable.
type Score struct {
	kind Kind
	// value holds centipawns for Centipawns, and the folded signed mate
	// magnitude ±(MateValue-|n|) for Mate. Zero otherwise.
	value int
}

// Cp returns a centipawn score.
func Cp(v int) Score {
	return Score{kind: Centipawns, value: v}
}

// MateIn returns a forced-mate score. Positive n means the side to move
// mates in n, negative means the side to move is mated in |n|, and zero
// means the side to move is already checkmated.
func MateIn(n int) Score {
	switch {
	case n > 0:
		return Score{kind: Mate, value: MateValue - n}
	case n < 0:
		return Score{kind: Mate, value: -MateValue - n}
	default:
		return Score{kind: Mate, value: -MateValue}
	}
}

// Drawn returns a draw score.
func Drawn() Score {
	return Score{kind: Draw}
}

// Kind returns the variant tag.
func (s Score) Kind() Kind { return s.kind }

// Valid reports whether the score holds an evaluation.
func (s Score) Valid() bool { return s.kind != Unavailable }

// IsMate reports whether the score is a forced mate.
func (s Score) IsMate() bool { return s.kind == Mate }

// IsDraw reports whether the score is a draw.
func (s Score) IsDraw() bool { return s.kind == Draw }

// Cp returns the centipawn value and whether the score is numeric.
func (s Score) Cp() (int, bool) {
	if s.kind != Centipawns {
		return 0, false
	}
	return s.value, true
}

// Mate returns the mate distance in moves and whether the score is a mate.
// Positive means the side to move mates, negative (or zero) means the side
// to move is mated.
func (s Score) Mate() (int, bool) {
	if s.kind != Mate {
		return 0, false
	}
	if s.value > 0 {
		return MateValue - s.value, true
	}
	return -(MateValue + s.value), true
}

// Signed folds the score to a single signed centipawn-equivalent value for
// ordering and threshold comparison: centipawns as-is, mates at
// ±(MateValue-|n|), draws at zero. Unavailable scores fold to zero; callers
// must check Valid first.
func (s Score) Signed() int {
	switch s.kind {
	case Centipawns, Mate:
		return s.value
	default:
		return 0
	}
}

// Negate mirrors the score to the opponent's perspective. Draws and
// unavailable scores are symmetric.
func (s Score) Negate() Score {
	switch s.kind {
	case Centipawns, Mate:
		return Score{kind: s.kind, value: -s.value}
	default:
		return s
	}
}

// White mirrors the score to White's perspective given whose turn it was in
// the evaluated position.
func (s Score) White(whiteToMove bool) Score {
	if whiteToMove {
		return s
	}
	return s.Negate()
}

// MarshalJSON renders the score as its String form, so JSON reports carry
// "+1.25" / "#3" / "=" / "?" rather than the internal representation.
func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// String renders the score in conventional pawn units.
// Examples: "+1.25", "-0.50", "#3", "#-5", "=", "?".
func (s Score) String() string {
	switch s.kind {
	case Centipawns:
		cp := s.value
		sign := "+"
		if cp < 0 {
			sign = "-"
			cp = -cp
		}
		whole := cp / 100
		frac := cp % 100
		if frac < 10 {
			return sign + strconv.Itoa(whole) + ".0" + strconv.Itoa(frac)
		}
		return sign + strconv.Itoa(whole) + "." + strconv.Itoa(frac)
	case Mate:
		if s.value > 0 {
			return "#" + strconv.Itoa(MateValue-s.value)
		}
		// A checkmate already on the board is "#0", never "#-0".
		if n := MateValue + s.value; n > 0 {
			return "#-" + strconv.Itoa(n)
		}
		return "#0"
	case Draw:
		return "="
	default:
		return "?"
	}
}
