// Package uci runs one persistent UCI engine process as an evaluation
// session. A session is owned by a single worker at a time: commands and
// replies for one Evaluate call are never interleaved with another.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notnil/chess"
	"go.uber.org/zap"

	"github.com/discochess/crux/internal/score"
)

// Sentinel errors for well-defined session failure modes.
var (
	// ErrTimeout indicates the engine produced no bestmove within the
	// movetime budget plus the grace period. The session must be replaced.
	ErrTimeout = errors.New("uci: evaluation timed out")

	// ErrCrashed indicates the engine process exited or closed its output
	// stream mid-request. The session must be replaced.
	ErrCrashed = errors.New("uci: engine crashed")

	// ErrNoScore indicates the engine answered bestmove without reporting
	// any score line for the position.
	ErrNoScore = errors.New("uci: engine reported no score")
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultGrace            = 5 * time.Second
)

// Config describes the engine binary to run and how to set it up.
type Config struct {
	// Path is the engine binary; Args are passed on the command line.
	Path string
	Args []string

	// Options are UCI options applied after the handshake. Threads and
	// Hash default to 1 and 64 when not set, keeping each session cheap
	// so parallelism comes from the pool instead.
	Options map[string]string

	// HandshakeTimeout bounds the uci/isready exchanges; Grace is added
	// to the movetime budget before an evaluation is declared timed out.
	HandshakeTimeout time.Duration
	Grace            time.Duration

	Logger *zap.Logger
}

// Session is one running engine process.
type Session struct {
	cmd    *exec.Cmd
	writer *bufio.Writer
	lines  chan string
	quit   chan struct{}
	grace  time.Duration
	logger *zap.Logger
	closed atomic.Bool

	mu      sync.Mutex
	readErr error
}

var scoreRe = regexp.MustCompile(`\bscore (cp|mate) (-?\d+)`)

// Start launches the engine, performs the uci handshake, applies options
// and synchronizes with isready. The returned session is ready to
// evaluate positions.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Path == "" {
		return nil, errors.New("uci: engine path is empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}

	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("uci: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("uci: stdout pipe: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		writer: bufio.NewWriter(stdin),
		lines:  make(chan string),
		quit:   make(chan struct{}),
		grace:  cfg.Grace,
		logger: cfg.Logger,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("uci: starting %s: %w", cfg.Path, err)
	}

	reader := bufio.NewReader(stdout)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
				close(s.lines)
				return
			}
			line = strings.Trim(line, " \n\t\r")
			s.logger.Debug("engine", zap.String("line", line))
			select {
			case s.lines <- line:
			case <-s.quit:
				return
			}
		}
	}()

	if err := s.handshake(cfg); err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Debug("session ready", zap.String("engine", cfg.Path))
	return s, nil
}

func (s *Session) handshake(cfg Config) error {
	if err := s.send("uci"); err != nil {
		return err
	}
	if err := s.await("uciok", cfg.HandshakeTimeout); err != nil {
		return fmt.Errorf("uci: handshake: %w", err)
	}

	opts := map[string]string{"Threads": "1", "Hash": "64"}
	for k, v := range cfg.Options {
		opts[k] = v
	}
	for name, value := range opts {
		if err := s.send("setoption name " + name + " value " + value); err != nil {
			return err
		}
	}

	if err := s.send("isready"); err != nil {
		return err
	}
	if err := s.await("readyok", cfg.HandshakeTimeout); err != nil {
		return fmt.Errorf("uci: synchronize: %w", err)
	}
	return nil
}

// Evaluate submits a position and runs a fixed-movetime search, returning
// the last score the engine reported before bestmove. The score is from
// the perspective of the side to move in fen, as UCI engines report it.
// On ErrTimeout or ErrCrashed the session is unusable and must be closed.
func (s *Session) Evaluate(ctx context.Context, fen string, movetime time.Duration) (score.Score, error) {
	if err := s.send("position fen " + fen); err != nil {
		return score.Score{}, fmt.Errorf("%w: %v", ErrCrashed, err)
	}
	if err := s.send("go movetime " + strconv.FormatInt(movetime.Milliseconds(), 10)); err != nil {
		return score.Score{}, fmt.Errorf("%w: %v", ErrCrashed, err)
	}

	timer := time.NewTimer(movetime + s.grace)
	defer timer.Stop()

	var last score.Score
	var seen bool
	for {
		select {
		case <-ctx.Done():
			return score.Score{}, ctx.Err()

		case <-timer.C:
			return score.Score{}, ErrTimeout

		case line, ok := <-s.lines:
			if !ok {
				s.mu.Lock()
				readErr := s.readErr
				s.mu.Unlock()
				return score.Score{}, fmt.Errorf("%w: %v", ErrCrashed, readErr)
			}
			if strings.HasPrefix(line, "bestmove") {
				if !seen {
					// Some engines answer "bestmove (none)" for terminal
					// positions without a score line; the board knows.
					if sc, ok := terminalScore(fen); ok {
						return sc, nil
					}
					return score.Score{}, ErrNoScore
				}
				return last, nil
			}
			if sc, ok := parseScore(line); ok {
				last = sc
				seen = true
			}
		}
	}
}

// NewGame resets the engine's internal state between games of a batch.
// Sessions are reusable across games without it; it exists for engines
// that score more consistently after a reset.
func (s *Session) NewGame() error {
	if err := s.send("ucinewgame"); err != nil {
		return fmt.Errorf("%w: %v", ErrCrashed, err)
	}
	if err := s.send("isready"); err != nil {
		return fmt.Errorf("%w: %v", ErrCrashed, err)
	}
	if err := s.await("readyok", defaultHandshakeTimeout); err != nil {
		return fmt.Errorf("uci: new game: %w", err)
	}
	return nil
}

// Close asks the engine to quit and kills the process. Idempotent.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.quit)

	// Best effort: a crashed engine will fail the write, which is fine.
	_ = s.send("quit")

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

// await consumes lines until one starts with prefix or the timeout fires.
func (s *Session) await(prefix string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return ErrTimeout
		case line, ok := <-s.lines:
			if !ok {
				s.mu.Lock()
				readErr := s.readErr
				s.mu.Unlock()
				return fmt.Errorf("%w: %v", ErrCrashed, readErr)
			}
			if strings.HasPrefix(line, prefix) {
				return nil
			}
		}
	}
}

func (s *Session) send(command string) error {
	s.logger.Debug("send", zap.String("command", command))
	if _, err := s.writer.WriteString(command + "\n"); err != nil {
		return err
	}
	return s.writer.Flush()
}

// terminalScore resolves a position with no legal moves from the board:
// checkmate scores as the side to move being mated, stalemate as a draw.
func terminalScore(fen string) (score.Score, bool) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return score.Score{}, false
	}
	switch chess.NewGame(opt).Position().Status() {
	case chess.Checkmate:
		return score.MateIn(0), true
	case chess.Stalemate:
		return score.Drawn(), true
	default:
		return score.Score{}, false
	}
}

// parseScore extracts a score from a UCI info line.
func parseScore(line string) (score.Score, bool) {
	m := scoreRe.FindStringSubmatch(line)
	if m == nil {
		return score.Score{}, false
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return score.Score{}, false
	}
	if m[1] == "mate" {
		return score.MateIn(v), true
	}
	return score.Cp(v), true
}
