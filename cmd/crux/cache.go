package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/discochess/crux/internal/config"
	"github.com/discochess/crux/internal/evalcache/badgercache"
	"github.com/discochess/crux/internal/score"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show the persistent evaluation cache",
	Long: `Display the location and size of the persistent evaluation cache.

The cache directory comes from the config file (cache_dir), falling
back to the user cache directory. Use --clear to delete it.`,
	RunE: runCache,
}

var cacheExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export cached evaluations as JSON lines",
	Long: `Write every cached evaluation to FILE, one JSON object per line.

The file extension selects the compression: .zst, .gz, or none.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheExport,
}

var clearCache bool

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "delete the cache directory")
	cacheCmd.AddCommand(cacheExportCmd)
	rootCmd.AddCommand(cacheCmd)
}

// defaultCacheDir is where analyze puts its persistent cache when the
// config does not say otherwise.
func defaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "crux", "evals")
}

func runCache(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dir := cfg.CacheDir
	if dir == "" {
		dir = defaultCacheDir()
	}

	if clearCache {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Printf("Cleared %s\n", dir)
		return nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("Cache directory: %s (empty)\n", dir)
		return nil
	}

	var files int
	var totalSize int64
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	fmt.Printf("Cache directory: %s\n", dir)
	fmt.Printf("Files:           %d\n", files)
	fmt.Printf("Total size:      %s\n", formatBytes(totalSize))
	return nil
}

// exportedEval is one line of a cache export.
type exportedEval struct {
	FEN  string      `json:"fen"`
	Eval score.Score `json:"eval"`
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dir := cfg.CacheDir
	if dir == "" {
		dir = defaultCacheDir()
	}

	cache, err := badgercache.Open(dir)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	out := args[0]
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	defer f.Close()

	w, err := codecFor(out).Writer(f)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}

	enc := json.NewEncoder(w)
	var n int
	err = cache.Each(func(fen string, s score.Score) error {
		n++
		return enc.Encode(exportedEval{FEN: fen, Eval: s})
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("exporting cache: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("exporting cache: %w", err)
	}

	fmt.Printf("Exported %d evaluations to %s\n", n, out)
	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
