// Package pool runs a fixed set of workers, each owning one oracle
// session, pulling evaluation requests from a shared bounded queue.
// Workers share nothing with each other; the queue is the only structure
// between the producer and the workers.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/discochess/crux/internal/evalcache"
	"github.com/discochess/crux/internal/fen"
	"github.com/discochess/crux/internal/score"
	"github.com/discochess/crux/internal/stats"
	"github.com/discochess/crux/internal/uci"
)

// ErrPoolClosed indicates a submit after the pool stopped accepting work,
// either because Drain was called or because every worker retired.
var ErrPoolClosed = errors.New("pool: closed")

// Oracle is one analysis session. Evaluate returns the score from the
// perspective of the side to move in fen. Sessions are never shared
// between workers, so implementations need not be safe for concurrent use.
type Oracle interface {
	Evaluate(ctx context.Context, fen string, movetime time.Duration) (score.Score, error)
	Close() error
}

// Factory creates a fresh oracle session for a worker slot.
type Factory func(ctx context.Context) (Oracle, error)

// Request is one position to evaluate. Game and Index are correlation
// keys echoed back on the Result; the pool does not interpret them.
type Request struct {
	Game     int
	Index    int
	FEN      string
	Movetime time.Duration
}

// Result carries a finished request. Err is set when the evaluation was
// unavailable after the retry; the Score is then the zero value.
type Result struct {
	Request
	Score  score.Score
	Cached bool
	Err    error
}

// Config configures a Pool.
type Config struct {
	// Workers is the number of oracle sessions. Defaults to the number
	// of CPUs.
	Workers int

	// QueueSize bounds the submission queue. Defaults to 2x Workers.
	QueueSize int

	Factory Factory

	// Cache is consulted before the oracle and updated after successful
	// evaluations. Optional.
	Cache evalcache.Cache

	Stats  stats.Collector
	Logger *zap.Logger
}

// Pool is a fixed-size evaluation worker pool. Start the workers with
// Start, submit with Submit, close the input side with Drain, and read
// Results until the channel closes.
type Pool struct {
	ctx      context.Context
	factory  Factory
	cache    evalcache.Cache
	stats    stats.Collector
	logger   *zap.Logger
	requests chan Request
	results  chan Result
	stopped  chan struct{}
	active   atomic.Int64
	wg       sync.WaitGroup

	// sendMu serializes Submit and Drain so the requests channel can
	// never be closed between a Submit's drained check and its send.
	sendMu  sync.Mutex
	drained bool

	mu       sync.Mutex
	closeErr error
}

// New creates a pool and starts its workers. When ctx is canceled,
// workers stop evaluating: in-flight oracle calls finish, queued requests
// come back with the context error.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Factory == nil {
		return nil, errors.New("pool: no oracle factory")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 2 * cfg.Workers
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Pool{
		ctx:      ctx,
		factory:  cfg.Factory,
		cache:    cfg.Cache,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		requests: make(chan Request, cfg.QueueSize),
		results:  make(chan Result, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
	p.active.Store(int64(cfg.Workers))

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker(i)
	}

	p.logger.Debug("pool started",
		zap.Int("workers", cfg.Workers),
		zap.Int("queueSize", cfg.QueueSize),
	)
	return p, nil
}

// Submit enqueues a request, blocking while the queue is full. It fails
// once ctx is done, every worker has retired, or the pool has been
// drained. Submit is safe to call concurrently with Drain.
func (p *Pool) Submit(ctx context.Context, req Request) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if p.drained {
		return ErrPoolClosed
	}
	select {
	case p.requests <- req:
		return nil
	case <-p.stopped:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain closes the input side. Workers finish the queued requests, emit
// their results and exit; Results closes when the last worker is done.
// Drain waits for an in-flight Submit before closing the queue.
func (p *Pool) Drain() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if !p.drained {
		p.drained = true
		close(p.requests)
	}
}

// Results returns the stream of finished requests. It is closed after
// Drain once all queued work is done, or when every worker has retired.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close waits for the workers to finish and returns the aggregated
// session close errors. Drain must have been called first.
func (p *Pool) Close() error {
	p.Drain()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeErr
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	defer p.exit()

	logger := p.logger.With(zap.Int("worker", id))

	var oracle Oracle
	defer func() {
		if oracle != nil {
			p.recordClose(oracle.Close())
		}
	}()

	for req := range p.requests {
		if err := p.ctx.Err(); err != nil {
			p.results <- Result{Request: req, Err: err}
			continue
		}

		key, keyErr := fen.Normalize(req.FEN)
		if keyErr == nil && p.cache != nil {
			if s, ok := p.cache.Get(key); ok {
				p.results <- Result{Request: req, Score: s, Cached: true}
				continue
			}
		}

		s, err := p.evaluate(&oracle, logger, req)
		if err != nil && retired(err) {
			p.results <- Result{Request: req, Err: err}
			logger.Warn("worker retired")
			p.stats.IncCounter(stats.MetricRetirements, 1)
			return
		}

		if err == nil && keyErr == nil && p.cache != nil {
			p.cache.Put(key, s)
		}
		p.results <- Result{Request: req, Score: s, Err: err}
	}
}

// evaluate runs one request against the worker's session, recreating the
// session and retrying exactly once when the oracle times out or crashes.
func (p *Pool) evaluate(oracle *Oracle, logger *zap.Logger, req Request) (score.Score, error) {
	for attempt := 0; ; attempt++ {
		if *oracle == nil {
			o, err := p.factory(p.ctx)
			if err != nil {
				logger.Warn("session creation failed", zap.Error(err))
				o, err = p.factory(p.ctx)
				if err != nil {
					// Two consecutive failures retire the worker.
					return score.Score{}, retirement(err)
				}
			}
			*oracle = o
		}

		start := time.Now()
		s, err := (*oracle).Evaluate(p.ctx, req.FEN, req.Movetime)
		p.stats.ObserveHistogram(stats.MetricEvalDuration, time.Since(start).Seconds())

		if err == nil {
			p.stats.IncCounter(stats.MetricPositions, 1)
			return s, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return score.Score{}, err
		}

		switch {
		case errors.Is(err, uci.ErrTimeout):
			p.stats.IncCounter(stats.MetricTimeouts, 1)
		case errors.Is(err, uci.ErrCrashed):
			p.stats.IncCounter(stats.MetricCrashes, 1)
		}

		// The session is unusable after a timeout or crash; replace it
		// either way so the next request starts clean.
		p.recordClose((*oracle).Close())
		*oracle = nil

		if attempt >= 1 {
			logger.Warn("evaluation unavailable",
				zap.Int("game", req.Game),
				zap.Int("index", req.Index),
				zap.Error(err),
			)
			return score.Score{}, err
		}

		p.stats.IncCounter(stats.MetricRetries, 1)
		logger.Debug("retrying evaluation",
			zap.Int("game", req.Game),
			zap.Int("index", req.Index),
			zap.Error(err),
		)
	}
}

// exit closes the result stream when the last live worker leaves.
func (p *Pool) exit() {
	if p.active.Add(-1) == 0 {
		close(p.stopped)
		close(p.results)
	}
}

func (p *Pool) recordClose(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.closeErr = multierr.Append(p.closeErr, err)
	p.mu.Unlock()
}

// retirementError marks a factory failure that retires the worker.
type retirementError struct{ err error }

func retirement(err error) error {
	return &retirementError{err: fmt.Errorf("pool: creating session: %w", err)}
}

func (e *retirementError) Error() string { return e.err.Error() }
func (e *retirementError) Unwrap() error { return e.err }

func retired(err error) bool {
	var re *retirementError
	return errors.As(err, &re)
}
