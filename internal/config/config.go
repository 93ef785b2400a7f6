// Package config loads the CLI configuration by layering defaults, an
// optional YAML file and CRUX_-prefixed environment variables.
package config

import (
	"errors"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains the analyzer settings the CLI exposes.
type Config struct {
	// Engine is the UCI engine binary; EngineArgs are appended to its
	// command line.
	Engine     string   `koanf:"engine"`
	EngineArgs []string `koanf:"engine_args"`

	// Workers is the evaluation pool size.
	Workers int `koanf:"workers"`

	// QueueSize bounds the evaluation request queue.
	QueueSize int `koanf:"queue_size"`

	// BalanceBand and DecisiveThreshold are the classifier cutoffs in
	// centipawns.
	BalanceBand       int `koanf:"balance_band"`
	DecisiveThreshold int `koanf:"decisive_threshold"`

	// MovetimeMS is the per-position engine budget in milliseconds.
	MovetimeMS int `koanf:"movetime_ms"`

	// CacheDir enables the persistent evaluation cache when non-empty;
	// CacheSize bounds the in-memory layer.
	CacheDir  string `koanf:"cache_dir"`
	CacheSize int    `koanf:"cache_size"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Engine:            "stockfish",
		Workers:           runtime.NumCPU(),
		BalanceBand:       50,
		DecisiveThreshold: 200,
		MovetimeMS:        300,
		CacheSize:         10000,
	}
}

// Load builds a Config. Order of precedence (low -> high):
//  1. defaults
//  2. YAML file at path (or $CRUX_CONFIG when path is empty)
//  3. environment variables (prefix CRUX_, e.g. CRUX_WORKERS)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("CRUX_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// CRUX_BALANCE_BAND -> balance_band; underscores are preserved to
	// match the koanf tags on the struct.
	envProvider := env.Provider("CRUX_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "crux_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Workers < 0 {
		return nil, errors.New("config: workers must not be negative")
	}
	if cfg.MovetimeMS <= 0 {
		return nil, errors.New("config: movetime_ms must be positive")
	}
	return &cfg, nil
}
