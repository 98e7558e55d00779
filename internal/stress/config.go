// Package stress drives churn workloads against refmap variants: a
// pool of workers inserting, looking up, and releasing handles over a
// fixed key space, with rate limiting, live config reload, and
// Prometheus metrics.
package stress

import (
	"fmt"
	"time"
)

// Map kinds accepted by Config.Map.Kind.
const (
	KindOrdered    = "ordered"
	KindHashed     = "hashed"
	KindOrderedCtx = "ordered-ctx"
	KindHashedCtx  = "hashed-ctx"
	KindSharded    = "sharded"
)

// Config is the stress tool configuration.
type Config struct {
	Map     MapConfig     `koanf:"map"`
	Load    LoadConfig    `koanf:"load"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// MapConfig selects the map variant under test.
type MapConfig struct {
	// Kind is one of ordered, hashed, ordered-ctx, hashed-ctx, sharded.
	Kind string `koanf:"kind"`
	// Shards is the shard count for the sharded kind (power of two).
	Shards int `koanf:"shards"`
}

// LoadConfig shapes the workload.
type LoadConfig struct {
	// Workers is the number of concurrent workload goroutines.
	Workers int `koanf:"workers"`
	// Keys is the size of the pregenerated key space.
	Keys int `koanf:"keys"`
	// Duration is how long the run lasts; 0 runs until interrupted.
	Duration time.Duration `koanf:"duration"`
	// Rate caps total operations per second; 0 means unlimited.
	Rate float64 `koanf:"rate"`
	// HoldMax is how many handles a worker retains before releasing
	// the oldest; it controls how many entries stay live.
	HoldMax int `koanf:"hold_max"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns a runnable default configuration.
func DefaultConfig() Config {
	return Config{
		Map: MapConfig{
			Kind:   KindHashed,
			Shards: 16,
		},
		Load: LoadConfig{
			Workers:  8,
			Keys:     10000,
			Duration: 30 * time.Second,
			Rate:     0,
			HoldMax:  64,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "localhost:9109",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	switch c.Map.Kind {
	case KindOrdered, KindHashed, KindOrderedCtx, KindHashedCtx, KindSharded:
	default:
		return fmt.Errorf("map.kind: unknown kind %q", c.Map.Kind)
	}
	if c.Load.Workers <= 0 {
		return fmt.Errorf("load.workers: must be positive, got %d", c.Load.Workers)
	}
	if c.Load.Keys <= 0 {
		return fmt.Errorf("load.keys: must be positive, got %d", c.Load.Keys)
	}
	if c.Load.Duration < 0 {
		return fmt.Errorf("load.duration: must not be negative, got %s", c.Load.Duration)
	}
	if c.Load.Rate < 0 {
		return fmt.Errorf("load.rate: must not be negative, got %v", c.Load.Rate)
	}
	if c.Load.HoldMax <= 0 {
		return fmt.Errorf("load.hold_max: must be positive, got %d", c.Load.HoldMax)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen: required when metrics are enabled")
	}
	return nil
}
