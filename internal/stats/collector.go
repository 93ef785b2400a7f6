// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Pipeline metrics.
	MetricPositions    = "crux_positions_evaluated_total"
	MetricMoments      = "crux_moments_total"
	MetricTimeouts     = "crux_oracle_timeouts_total"
	MetricCrashes      = "crux_oracle_crashes_total"
	MetricRetries      = "crux_oracle_retries_total"
	MetricRetirements  = "crux_worker_retirements_total"
	MetricEvalDuration = "crux_evaluation_duration_seconds"

	// Cache metrics.
	MetricCacheHits   = "crux_cache_hits_total"
	MetricCacheMisses = "crux_cache_misses_total"
	MetricCacheSize   = "crux_cache_size"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
