// Package main provides the crux CLI tool for finding the critical
// moments of chess games with a UCI engine.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
