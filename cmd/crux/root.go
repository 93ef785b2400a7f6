package main

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags.
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "crux",
	Short: "Find the critical moments of chess games",
	Long: `Crux analyzes chess games and reports their critical moments: the
plies where the evaluation moves from approximately balanced to a
decisive advantage for one side.

Every position of every game is evaluated by a pool of UCI engine
sessions (Stockfish by default), and each game's evaluation trajectory
is classified against configurable thresholds.

Examples:
  # Analyze a PGN file
  crux analyze games.pgn

  # Compressed input and JSON output
  crux analyze games.pgn.zst --json

  # A different engine and deeper searches
  crux analyze games.pgn --engine ./lc0 --movetime 1s

  # Show the persistent evaluation cache
  crux cache`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML); $CRUX_CONFIG is used when unset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
