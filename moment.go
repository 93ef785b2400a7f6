package crux

import (
	"time"

	"github.com/google/uuid"
)

// State is the coordinator's pipeline stage, recorded on the result and
// useful for progress displays.
type State string

// Pipeline states in order; Failed is terminal for batch-level input
// failures only.
const (
	StateIdle        State = "idle"
	StateParsing     State = "parsing"
	StateEvaluating  State = "evaluating"
	StateClassifying State = "classifying"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Progress is one progress update: positions completed out of the batch
// total. Updates are monotonic and at-least-once; consumers must tolerate
// duplicates.
type Progress struct {
	Completed int
	Total     int
}

// ProgressFunc receives progress updates. It is called from a single
// goroutine and must not block for long.
type ProgressFunc func(Progress)

// GameReport is the analysis outcome for one game of a batch: either its
// critical moments (possibly none) or the error that prevented analysis.
type GameReport struct {
	// Game is the game's 1-based ordinal position in the input batch.
	Game int `json:"game"`

	// PGN tag headers; "?" when absent, Result "*" when unknown.
	White  string `json:"white"`
	Black  string `json:"black"`
	Event  string `json:"event"`
	Site   string `json:"site"`
	Date   string `json:"date"`
	Round  string `json:"round"`
	Result string `json:"result"`

	// Moments are the critical moments found, in ply order.
	Moments []Moment `json:"moments,omitempty"`

	// Swings summarizes the game's evaluation turbulence. Nil when no
	// swings could be measured.
	Swings *Summary `json:"swings,omitempty"`

	// Err is set when the game could not be analyzed; Reason is its
	// rendered form for serialized output.
	Err    error  `json:"-"`
	Reason string `json:"error,omitempty"`
}

// BatchResult is the outcome of one Analyze call. Games holds one entry
// per submitted game, in input order, regardless of per-game failures.
type BatchResult struct {
	// ID identifies the batch (UUIDv4).
	ID string `json:"id"`

	State State `json:"state"`

	Games []GameReport `json:"games"`

	PositionsTotal     int   `json:"positions_total"`
	PositionsEvaluated int   `json:"positions_evaluated"`
	CacheHits          int64 `json:"cache_hits"`

	Elapsed time.Duration `json:"elapsed"`
}

// newBatchResult allocates a batch result in its idle state, before any
// input has been read.
func newBatchResult() *BatchResult {
	return &BatchResult{
		ID:    uuid.NewString(),
		State: StateIdle,
	}
}

// Moments returns the total number of critical moments across the batch.
func (r *BatchResult) Moments() int {
	var n int
	for _, g := range r.Games {
		n += len(g.Moments)
	}
	return n
}
