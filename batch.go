package crux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/crux/internal/classify"
	"github.com/discochess/crux/internal/pgn"
	"github.com/discochess/crux/internal/pool"
	"github.com/discochess/crux/internal/report"
	"github.com/discochess/crux/internal/score"
	"github.com/discochess/crux/internal/stats"
)

// gameState tracks one game's trajectory while its evaluations arrive
// out of order from the pool.
type gameState struct {
	game *pgn.Game

	// trajectory[k] is the White-POV score of position k (after k plies).
	trajectory []score.Score

	// remaining counts positions still waiting for a result.
	remaining int

	// canceled is set when any of the game's evaluations failed with a
	// context error; the game then reports the cancellation instead of
	// a partial classification.
	canceled bool
}

// AnalyzeReader parses a PGN stream and analyzes every game in it. The
// returned result has one report per game in input order; per-game parse
// and evaluation failures are recorded on the report, not returned.
//
// When ctx is canceled mid-batch, the partial result is returned together
// with the context error: games whose positions were all evaluated are
// classified, the rest carry the context error.
func (a *Analyzer) AnalyzeReader(ctx context.Context, r io.Reader) (*BatchResult, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	result := newBatchResult()
	logger := a.logger.With(zap.String("batch", result.ID))

	result.State = StateParsing
	games, err := pgn.Parse(r)
	if err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("parsing input: %w", err)
	}
	if len(games) == 0 {
		result.State = StateFailed
		return result, ErrNoGames
	}

	result.Games = make([]GameReport, len(games))
	states := make([]*gameState, len(games))
	completed := 0

	for i, g := range games {
		result.Games[i] = GameReport{
			Game:   g.Number,
			White:  g.White,
			Black:  g.Black,
			Event:  g.Event,
			Site:   g.Site,
			Date:   g.Date,
			Round:  g.Round,
			Result: g.Result,
		}
		if g.Err != nil {
			result.Games[i].Err = g.Err
			result.Games[i].Reason = g.Err.Error()
			continue
		}

		st := &gameState{
			game:       g,
			trajectory: make([]score.Score, len(g.Positions)),
			remaining:  len(g.Positions),
		}
		// Terminal positions are scored from the board, not the engine.
		for k, p := range g.Positions {
			switch {
			case p.Checkmate:
				st.trajectory[k] = score.MateIn(0).White(p.WhiteToMove)
			case p.Stalemate:
				st.trajectory[k] = score.Drawn()
			default:
				continue
			}
			st.remaining--
			completed++
		}
		states[i] = st
		result.PositionsTotal += len(g.Positions)
		if st.remaining == 0 {
			a.classifyGame(&result.Games[i], st)
		}
	}

	a.reportProgress(completed, result.PositionsTotal)

	pl, err := pool.New(ctx, pool.Config{
		Workers:   a.workers,
		QueueSize: a.queueSize,
		Factory:   a.factory,
		Cache:     a.cache,
		Stats:     a.stats,
		Logger:    logger.Named("pool"),
	})
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	result.State = StateEvaluating
	logger.Info("evaluating batch",
		zap.Int("games", len(games)),
		zap.Int("positions", result.PositionsTotal),
	)

	go func() {
		defer pl.Drain()
		for gi, st := range states {
			if st == nil {
				continue
			}
			for k := range st.game.Positions {
				if st.trajectory[k].Valid() {
					continue
				}
				req := pool.Request{
					Game:     gi,
					Index:    k,
					FEN:      st.game.Positions[k].FEN,
					Movetime: a.movetime,
				}
				if err := pl.Submit(ctx, req); err != nil {
					return
				}
			}
		}
	}()

	for res := range pl.Results() {
		st := states[res.Game]
		switch {
		case res.Err == nil:
			whiteToMove := st.game.Positions[res.Index].WhiteToMove
			st.trajectory[res.Index] = res.Score.White(whiteToMove)
			result.PositionsEvaluated++
		case errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded):
			st.canceled = true
		}
		if res.Cached {
			result.CacheHits++
		}
		st.remaining--
		completed++
		a.reportProgress(completed, result.PositionsTotal)

		if st.remaining == 0 && !st.canceled {
			a.classifyGame(&result.Games[res.Game], st)
		}
	}

	result.State = StateClassifying

	// Games the pool never finished: canceled batches carry the context
	// error, worker retirement leaves holes the classifier looks past.
	for i, st := range states {
		if st == nil {
			continue
		}
		if st.canceled || (st.remaining > 0 && ctx.Err() != nil) {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			result.Games[i].Err = err
			result.Games[i].Reason = "analysis canceled"
			continue
		}
		if st.remaining > 0 {
			a.classifyGame(&result.Games[i], st)
		}
	}

	if err := pl.Close(); err != nil {
		logger.Warn("session close failures", zap.Error(err))
	}

	result.Elapsed = time.Since(start)
	a.reportProgress(completed, result.PositionsTotal)
	result.State = StateDone

	logger.Info("batch done",
		zap.Int("moments", result.Moments()),
		zap.Int("evaluated", result.PositionsEvaluated),
		zap.Int64("cacheHits", result.CacheHits),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, ctx.Err()
}

// classifyGame fills in the moments and swing summary for a game whose
// trajectory is as complete as it will get.
func (a *Analyzer) classifyGame(rep *GameReport, st *gameState) {
	cfg := classify.Config{
		BalanceBand:       a.balanceBand,
		DecisiveThreshold: a.decisiveThreshold,
	}
	rep.Moments = classify.Moments(cfg, st.game.Plies, st.trajectory)
	a.stats.IncCounter(stats.MetricMoments, int64(len(rep.Moments)))

	if s := report.Summarize(st.trajectory); s.Swings > 0 {
		rep.Swings = &s
	}
}

func (a *Analyzer) reportProgress(completed, total int) {
	if a.progress == nil {
		return
	}
	a.progress(Progress{Completed: completed, Total: total})
}
