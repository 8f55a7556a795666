// Package simulator drives bot matches and scripted scenarios against the
// scoring service, either in process or over its HTTP API.
package simulator

import (
	"fmt"
	"time"
)

// Defaults for a simulation run.
const (
	DefaultMaxSteps = 2000
	DefaultTimeout  = 10 * time.Second
	DefaultMatches  = 1
	DefaultWorkers  = 4
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // API base URL; empty runs against an in-process service
	Seed     uint64        // seed of the first match; match i uses Seed+i
	Matches  int           // number of bot matches to play
	Workers  int           // concurrent matches
	MaxSteps int           // commands per match before giving up
	Timeout  time.Duration // HTTP request timeout
}

// DefaultConfig returns a configuration for a single seeded match.
func DefaultConfig() Config {
	return Config{
		Seed:     1,
		Matches:  DefaultMatches,
		Workers:  DefaultWorkers,
		MaxSteps: DefaultMaxSteps,
		Timeout:  DefaultTimeout,
	}
}

// Validate checks the run limits.
func (c Config) Validate() error {
	switch {
	case c.Matches <= 0:
		return fmt.Errorf("%w: matches must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.MaxSteps <= 0:
		return fmt.Errorf("%w: max steps must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
