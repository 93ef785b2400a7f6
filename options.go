package crux

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/crux/internal/classify"
	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/stats"
)

// DefaultMovetime is the per-position engine budget.
const DefaultMovetime = 300 * time.Millisecond

// Option configures an Analyzer.
type Option interface {
	apply(*options)
}

// options holds the analyzer configuration.
type options struct {
	enginePath    string
	engineArgs    []string
	engineOptions map[string]string
	factory       OracleFactory

	workers   int
	queueSize int

	balanceBand       int
	decisiveThreshold int
	movetime          time.Duration

	cache     evalcache.Cache
	cacheSize int
	cacheDir  string

	progress ProgressFunc
	stats    stats.Collector
	logger   *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		balanceBand:       classify.DefaultBalanceBand,
		decisiveThreshold: classify.DefaultDecisiveThreshold,
		movetime:          DefaultMovetime,
		stats:             stats.NewNoop(),
		logger:            zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithEngine sets the UCI engine binary (and its command-line arguments)
// used for evaluation sessions.
func WithEngine(path string, args ...string) Option {
	return optionFunc(func(o *options) {
		o.enginePath = path
		o.engineArgs = args
	})
}

// WithEngineOptions sets UCI options applied to every session.
// Threads=1 and Hash=64 are applied by default; values given here
// override them.
func WithEngineOptions(opts map[string]string) Option {
	return optionFunc(func(o *options) {
		o.engineOptions = opts
	})
}

// WithOracleFactory replaces the UCI engine with a custom oracle backend.
// Takes precedence over WithEngine.
func WithOracleFactory(f OracleFactory) Option {
	return optionFunc(func(o *options) {
		o.factory = f
	})
}

// WithWorkers sets the evaluation pool size.
// Default is the number of CPUs.
func WithWorkers(n int) Option {
	return optionFunc(func(o *options) {
		o.workers = n
	})
}

// WithQueueSize bounds the evaluation request queue.
// Default is twice the pool size.
func WithQueueSize(n int) Option {
	return optionFunc(func(o *options) {
		o.queueSize = n
	})
}

// WithBalanceBand sets the "approximately equal" cutoff in centipawns,
// inclusive. Default is 50.
func WithBalanceBand(cp int) Option {
	return optionFunc(func(o *options) {
		o.balanceBand = cp
	})
}

// WithDecisiveThreshold sets the decisive-advantage cutoff in centipawns,
// inclusive. Default is 200.
func WithDecisiveThreshold(cp int) Option {
	return optionFunc(func(o *options) {
		o.decisiveThreshold = cp
	})
}

// WithMovetime sets the per-position engine budget.
// Default is DefaultMovetime.
func WithMovetime(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.movetime = d
	})
}

// WithCache sets the evaluation cache to use. It takes precedence over
// WithMemoryCache and WithCacheDir, and is closed with the analyzer.
func WithCache(c Cache) Option {
	return optionFunc(func(o *options) {
		o.cache = c
	})
}

// WithMemoryCache enables an in-memory LRU evaluation cache holding up
// to size positions.
func WithMemoryCache(size int) Option {
	return optionFunc(func(o *options) {
		o.cacheSize = size
	})
}

// WithCacheDir enables a persistent evaluation cache in dir, layered
// under the memory cache when both are configured.
func WithCacheDir(dir string) Option {
	return optionFunc(func(o *options) {
		o.cacheDir = dir
	})
}

// WithProgress sets the progress callback for Analyze calls.
func WithProgress(fn ProgressFunc) Option {
	return optionFunc(func(o *options) {
		o.progress = fn
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
