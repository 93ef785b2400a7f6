package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/crux"
	"github.com/discochess/crux/internal/codec"
	"github.com/discochess/crux/internal/codec/gzipcodec"
	"github.com/discochess/crux/internal/codec/noopcodec"
	"github.com/discochess/crux/internal/codec/zstdcodec"
	"github.com/discochess/crux/internal/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [PGN file]",
	Short: "Analyze games and report their critical moments",
	Long: `Analyze every game in a PGN file and report the critical moments:
plies where the evaluation moves from approximately balanced to a
decisive advantage for one side.

The input may be compressed (.zst or .gz, detected by extension).
Use "-" to read from stdin.

Examples:
  # Analyze with the defaults (stockfish on $PATH)
  crux analyze games.pgn

  # Tighter thresholds and more time per position
  crux analyze games.pgn --balance-band 30 --decisive 150 --movetime 500ms

  # Machine-readable output
  crux analyze games.pgn --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	enginePath        string
	workers           int
	movetime          time.Duration
	balanceBand       int
	decisiveThreshold int
	cacheDir          string
	noCache           bool
	outputJSON        bool
)

func init() {
	analyzeCmd.Flags().StringVar(&enginePath, "engine", "", "UCI engine binary (default from config, then stockfish)")
	analyzeCmd.Flags().IntVar(&workers, "workers", 0, "engine sessions to run (default: number of CPUs)")
	analyzeCmd.Flags().DurationVar(&movetime, "movetime", 0, "engine time per position (default 300ms)")
	analyzeCmd.Flags().IntVar(&balanceBand, "balance-band", 0, "\"approximately equal\" cutoff in centipawns (default 50)")
	analyzeCmd.Flags().IntVar(&decisiveThreshold, "decisive", 0, "decisive-advantage cutoff in centipawns (default 200)")
	analyzeCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "persistent evaluation cache directory (default from config)")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable evaluation caching")
	analyzeCmd.Flags().BoolVar(&outputJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, cfg)

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
	}

	opts := []crux.Option{
		crux.WithEngine(cfg.Engine, cfg.EngineArgs...),
		crux.WithWorkers(cfg.Workers),
		crux.WithQueueSize(cfg.QueueSize),
		crux.WithBalanceBand(cfg.BalanceBand),
		crux.WithDecisiveThreshold(cfg.DecisiveThreshold),
		crux.WithMovetime(time.Duration(cfg.MovetimeMS) * time.Millisecond),
		crux.WithLogger(logger),
	}
	if !noCache {
		if cfg.CacheSize > 0 {
			opts = append(opts, crux.WithMemoryCache(cfg.CacheSize))
		}
		dir := cfg.CacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		opts = append(opts, crux.WithCacheDir(dir))
	}

	var spin *spinner.Spinner
	if !outputJSON {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " analyzing..."
		opts = append(opts, crux.WithProgress(func(p crux.Progress) {
			spin.Suffix = fmt.Sprintf(" analyzing... %d/%d positions", p.Completed, p.Total)
		}))
	}

	analyzer, err := crux.New(opts...)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}
	defer analyzer.Close()

	// Handle interrupt: first signal cancels the batch, partial results
	// are still printed.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if spin != nil {
		spin.Start()
	}
	result, runErr := analyzer.AnalyzeReader(ctx, in)
	if spin != nil {
		spin.Stop()
	}
	if result == nil {
		return runErr
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResult(result)
	}
	return runErr
}

// applyFlags overlays flags the user actually set onto the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("engine") {
		cfg.Engine = enginePath
		cfg.EngineArgs = nil
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("movetime") {
		cfg.MovetimeMS = int(movetime.Milliseconds())
	}
	if cmd.Flags().Changed("balance-band") {
		cfg.BalanceBand = balanceBand
	}
	if cmd.Flags().Changed("decisive") {
		cfg.DecisiveThreshold = decisiveThreshold
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = cacheDir
	}
}

// openInput opens the PGN source, transparently decompressing .zst and
// .gz files. "-" reads stdin.
func openInput(path string) (io.ReadCloser, error) {
	var raw io.ReadCloser
	if path == "-" {
		raw = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		raw = f
	}

	decompressed, err := codecFor(path).Reader(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return &layeredCloser{ReadCloser: decompressed, inner: raw}, nil
}

// codecFor picks a codec by the path's file extension, falling back to
// no compression.
func codecFor(path string) codec.Codec {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, c := range []codec.Codec{zstdcodec.New(), gzipcodec.New()} {
		if ext == c.Extension() {
			return c
		}
	}
	return noopcodec.New()
}

// layeredCloser closes the decompressor and then the underlying file.
type layeredCloser struct {
	io.ReadCloser
	inner io.Closer
}

func (l *layeredCloser) Close() error {
	err := l.ReadCloser.Close()
	if ierr := l.inner.Close(); err == nil {
		err = ierr
	}
	return err
}

func printResult(result *crux.BatchResult) {
	for _, g := range result.Games {
		fmt.Printf("Game %d: %s vs %s (%s)\n", g.Game, g.White, g.Black, g.Result)

		if g.Reason != "" {
			fmt.Printf("  error: %s\n", g.Reason)
			continue
		}
		if len(g.Moments) == 0 {
			fmt.Println("  no critical moments")
		}
		for _, m := range g.Moments {
			fmt.Printf("  ply %-3d %-8s %s -> %s  favors %s\n",
				m.Ply, m.Move, m.Before, m.After, m.SideFavored)
		}
		if g.Swings != nil {
			fmt.Printf("  swings: %d, mean %.0fcp, max %.0fcp\n",
				g.Swings.Swings, g.Swings.Mean, g.Swings.Max)
		}
	}

	fmt.Println()
	fmt.Printf("Games:     %d\n", len(result.Games))
	fmt.Printf("Moments:   %d\n", result.Moments())
	fmt.Printf("Positions: %d evaluated of %d (%d cached)\n",
		result.PositionsEvaluated, result.PositionsTotal, result.CacheHits)
	fmt.Printf("Elapsed:   %s\n", result.Elapsed.Round(time.Millisecond))
}
