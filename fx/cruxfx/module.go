// Package cruxfx provides an fx module for an engine-backed analyzer.
package cruxfx

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/crux"
	"github.com/discochess/crux/internal/stats"
	"github.com/discochess/crux/internal/stats/logger"
)

// Config holds configuration for the analyzer.
type Config struct {
	// Engine is the UCI engine binary to launch sessions with.
	Engine string

	// EngineArgs are passed to the engine binary.
	EngineArgs []string

	// Workers is the number of engine sessions.
	// Default is the number of CPUs.
	Workers int

	// Movetime is the engine budget per position.
	// Default is crux.DefaultMovetime.
	Movetime time.Duration

	// CacheSize is the number of evaluations to cache in memory.
	// Default is 10000.
	CacheSize int

	// CacheDir, when set, enables a persistent evaluation cache.
	CacheDir string
}

// Module provides an engine-backed *crux.Analyzer.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("crux",
	fx.Provide(
		newStatsCollector,
		newAnalyzer,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("crux.stats"))
}

// Params holds dependencies for creating the analyzer.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided analyzer.
type Result struct {
	fx.Out

	Analyzer *crux.Analyzer
}

func newAnalyzer(p Params) (Result, error) {
	cacheSize := p.Config.CacheSize
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	movetime := p.Config.Movetime
	if movetime <= 0 {
		movetime = crux.DefaultMovetime
	}

	opts := []crux.Option{
		crux.WithEngine(p.Config.Engine, p.Config.EngineArgs...),
		crux.WithWorkers(p.Config.Workers),
		crux.WithMovetime(movetime),
		crux.WithMemoryCache(cacheSize),
		crux.WithStats(p.Collector),
		crux.WithLogger(p.Logger.Named("crux")),
	}
	if p.Config.CacheDir != "" {
		opts = append(opts, crux.WithCacheDir(p.Config.CacheDir))
	}

	analyzer, err := crux.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return analyzer.Close()
		},
	})

	return Result{Analyzer: analyzer}, nil
}
