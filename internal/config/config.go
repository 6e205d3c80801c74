// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Topic is the only raw record topic kept by the normalizer.
	Topic string `koanf:"topic"`

	// TypeMaxLen caps the derived event type, in characters.
	TypeMaxLen int `koanf:"type_max_len"`

	// DefaultMinWeight is the edge threshold used when a view omits one.
	DefaultMinWeight int `koanf:"default_min_weight"`

	// MaxUploadBytes bounds POST /datasets bodies.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// DatasetCapacity bounds the in-memory working set; the oldest dataset is evicted first.
	DatasetCapacity int `koanf:"dataset_capacity"`

	// EigenMaxIterations and EigenTolerance tune eigenvector power iteration.
	// Zero iterations scales the cap with the node count.
	EigenMaxIterations int     `koanf:"eigen_max_iterations"`
	EigenTolerance     float64 `koanf:"eigen_tolerance"`

	// PlaybackStep is the cursor advance per tick, in seconds.
	PlaybackStep float64 `koanf:"playback_step"`

	// PlaybackIntervalMS is the wall-clock delay between ticks.
	PlaybackIntervalMS int `koanf:"playback_interval_ms"`

	// OTLPEndpoint enables trace export when set, e.g. "localhost:4318".
	OTLPEndpoint string `koanf:"otlp_endpoint"`

	// TraceSampleRate is the parent-based ratio sampler fraction.
	TraceSampleRate float64 `koanf:"trace_sample_rate"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Topic:              "/capabilities/events",
		TypeMaxLen:         60,
		DefaultMinWeight:   1,
		MaxUploadBytes:     64 << 20,
		DatasetCapacity:    32,
		EigenMaxIterations: 0,
		EigenTolerance:     1e-6,
		PlaybackStep:       0.5,
		PlaybackIntervalMS: 400,
		TraceSampleRate:    1.0,
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Topic == "":
		return fmt.Errorf("%w: topic must not be empty", ErrInvalidConfig)
	case c.TypeMaxLen <= 0:
		return fmt.Errorf("%w: type_max_len must be positive", ErrInvalidConfig)
	case c.DefaultMinWeight < 1:
		return fmt.Errorf("%w: default_min_weight must be at least 1", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.DatasetCapacity <= 0:
		return fmt.Errorf("%w: dataset_capacity must be positive", ErrInvalidConfig)
	case c.EigenMaxIterations < 0:
		return fmt.Errorf("%w: eigen_max_iterations must not be negative", ErrInvalidConfig)
	case c.EigenTolerance <= 0:
		return fmt.Errorf("%w: eigen_tolerance must be positive", ErrInvalidConfig)
	case c.PlaybackStep <= 0:
		return fmt.Errorf("%w: playback_step must be positive", ErrInvalidConfig)
	case c.PlaybackIntervalMS <= 0:
		return fmt.Errorf("%w: playback_interval_ms must be positive", ErrInvalidConfig)
	case c.TraceSampleRate < 0 || c.TraceSampleRate > 1:
		return fmt.Errorf("%w: trace_sample_rate must be within [0,1]", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	return nil
}
