// Package crux finds the critical moments of chess games: plies where the
// evaluation moves from approximately balanced to a decisive advantage
// for one side.
//
// Games are parsed from PGN, every position is evaluated by a pool of
// long-lived UCI engine sessions, and each game's evaluation trajectory
// is classified against configurable balance/decisive thresholds.
//
// Example usage:
//
//	analyzer, err := crux.New(
//	    crux.WithEngine("stockfish"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer analyzer.Close()
//
//	result, err := analyzer.AnalyzeReader(ctx, pgnFile)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, game := range result.Games {
//	    for _, m := range game.Moments {
//	        fmt.Printf("game %d ply %d: %s (%s -> %s)\n",
//	            game.Game, m.Ply, m.Move, m.Before, m.After)
//	    }
//	}
package crux

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/crux/internal/classify"
	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/evalcache/badgercache"
	"github.com/discochess/crux/internal/evalcache/layered"
	"github.com/discochess/crux/internal/evalcache/lrucache"
	"github.com/discochess/crux/internal/evalcache/noopcache"
	"github.com/discochess/crux/internal/pool"
	"github.com/discochess/crux/internal/report"
	"github.com/discochess/crux/internal/score"
	"github.com/discochess/crux/internal/stats"
	"github.com/discochess/crux/internal/uci"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNoGames indicates the input contained no games at all.
	ErrNoGames = errors.New("crux: no games in input")

	// ErrClosed indicates the analyzer has been closed.
	ErrClosed = errors.New("crux: analyzer closed")

	// ErrNoEngine indicates neither an engine path nor an oracle factory
	// was configured.
	ErrNoEngine = errors.New("crux: no engine configured")
)

// Score is an evaluation of one position: centipawns, a forced mate
// distance, a draw, or unavailable (the zero value). Scores are from the
// perspective of the side to move unless stated otherwise.
type Score = score.Score

// Cp returns a centipawn score.
func Cp(v int) Score { return score.Cp(v) }

// MateIn returns a forced-mate score. Positive n means the side to move
// mates in n; negative means it is mated.
func MateIn(n int) Score { return score.MateIn(n) }

// Draw returns a draw score.
func Draw() Score { return score.Drawn() }

// Oracle is one analysis session: it evaluates positions with a bounded
// time budget and is used by exactly one pool worker at a time.
type Oracle = pool.Oracle

// OracleFactory creates fresh oracle sessions for worker slots. The
// shipped factory launches a UCI engine; tests and alternative backends
// substitute their own.
type OracleFactory = pool.Factory

// Cache memoizes evaluations by normalized FEN across games and batches.
type Cache = evalcache.Cache

// Moment is one detected critical moment of a game.
type Moment = classify.Moment

// Summary describes a game's evaluation swings.
type Summary = report.Summary

// Analyzer runs critical-moment analysis batches.
// An Analyzer is safe for concurrent use by multiple goroutines; each
// Analyze call owns its own coordinator and worker pool.
type Analyzer struct {
	factory           OracleFactory
	cache             evalcache.Cache
	workers           int
	queueSize         int
	balanceBand       int
	decisiveThreshold int
	movetime          time.Duration
	progress          ProgressFunc
	stats             stats.Collector
	logger            *zap.Logger
	closed            atomic.Bool
}

// New creates a new Analyzer with the given options. An engine path or
// an oracle factory is required; everything else has defaults.
func New(opts ...Option) (*Analyzer, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	factory := cfg.factory
	if factory == nil {
		if cfg.enginePath == "" {
			return nil, ErrNoEngine
		}
		engineCfg := uci.Config{
			Path:    cfg.enginePath,
			Args:    cfg.engineArgs,
			Options: cfg.engineOptions,
			Logger:  cfg.logger.Named("crux.uci"),
		}
		factory = func(ctx context.Context) (Oracle, error) {
			return uci.Start(ctx, engineCfg)
		}
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		factory:           factory,
		cache:             cache,
		workers:           cfg.workers,
		queueSize:         cfg.queueSize,
		balanceBand:       cfg.balanceBand,
		decisiveThreshold: cfg.decisiveThreshold,
		movetime:          cfg.movetime,
		progress:          cfg.progress,
		stats:             cfg.stats,
		logger:            cfg.logger,
	}

	a.logger.Debug("analyzer initialized",
		zap.Int("workers", a.workers),
		zap.Int("balanceBand", a.balanceBand),
		zap.Int("decisiveThreshold", a.decisiveThreshold),
		zap.Duration("movetime", a.movetime),
	)

	return a, nil
}

// AnalyzePGN analyzes a batch of games given as PGN text.
func (a *Analyzer) AnalyzePGN(ctx context.Context, pgnText string) (*BatchResult, error) {
	return a.AnalyzeReader(ctx, strings.NewReader(pgnText))
}

// Close releases the analyzer's resources. In-flight batches should be
// canceled or completed first. After Close, the analyzer cannot be used.
func (a *Analyzer) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			return fmt.Errorf("closing cache: %w", err)
		}
	}
	return nil
}

// buildCache assembles the evaluation cache from the configured layers.
func buildCache(cfg options) (evalcache.Cache, error) {
	if cfg.cache != nil {
		return cfg.cache, nil
	}

	var mem evalcache.Cache
	if cfg.cacheSize > 0 {
		c, err := lrucache.New(cfg.cacheSize, cfg.stats)
		if err != nil {
			return nil, fmt.Errorf("creating memory cache: %w", err)
		}
		mem = c
	}

	if cfg.cacheDir == "" {
		if mem == nil {
			return noopcache.New(), nil
		}
		return mem, nil
	}

	persistent, err := badgercache.Open(cfg.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("opening cache dir: %w", err)
	}
	if mem == nil {
		return persistent, nil
	}
	return layered.New(mem, persistent), nil
}
