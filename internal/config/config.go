// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and the environment on top of the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/takraw/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds each executor shard's command queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of match executor shards.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the command id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StorePath selects the SQLite database file. Empty keeps everything in memory.
	StorePath string `koanf:"store_path"`

	// CommandTimeoutMS bounds how long a request waits for its match executor.
	CommandTimeoutMS int `koanf:"command_timeout_ms"`

	// Rules sets the point targets of a set.
	Rules Rules `koanf:"rules"`
}

// Rules mirrors scoring.Rules.
type Rules struct {
	WinPoints int `koanf:"win_points"`
	CapPoints int `koanf:"cap_points"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        1024,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       50_000,
		CommandTimeoutMS: 5000,
		Rules: Rules{
			WinPoints: scoring.DefaultWinPoints,
			CapPoints: scoring.DefaultCapPoints,
		},
	}
}

// CommandTimeout returns CommandTimeoutMS as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}

// ScoringRules builds the rules engine configured by c.
func (c *Config) ScoringRules() scoring.Rules {
	return scoring.New(scoring.WithWinPoints(c.Rules.WinPoints), scoring.WithCapPoints(c.Rules.CapPoints))
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.CommandTimeoutMS <= 0:
		return fmt.Errorf("%w: command_timeout_ms must be positive, got %d", ErrInvalidConfig, c.CommandTimeoutMS)
	case c.Rules.WinPoints < 2:
		return fmt.Errorf("%w: rules.win_points must be at least 2, got %d", ErrInvalidConfig, c.Rules.WinPoints)
	case c.Rules.CapPoints <= c.Rules.WinPoints:
		return fmt.Errorf("%w: rules.cap_points %d must be above rules.win_points %d", ErrInvalidConfig, c.Rules.CapPoints, c.Rules.WinPoints)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
