// Package config holds the demo harness settings: defaults, environment
// overrides and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/panyam/gocoord"
)

// Defaults: the numbers 1..20 over 4 workers,
// two producers and ten counter increments.
const (
	DefaultWorkers      = 4
	DefaultItems        = 20
	DefaultProducers    = 2
	DefaultIncrements   = 10
	DefaultMessageDelay = 5 * time.Millisecond
)

// Environment variable names for configuration overrides
const (
	EnvWorkers      = "COORD_DEMO_WORKERS"
	EnvItems        = "COORD_DEMO_ITEMS"
	EnvProducers    = "COORD_DEMO_PRODUCERS"
	EnvIncrements   = "COORD_DEMO_INCREMENTS"
	EnvMessageDelay = "COORD_DEMO_MESSAGE_DELAY"
)

// Config holds harness configuration
type Config struct {
	// Workers is the chunk worker count for the parallel computation stage.
	Workers int
	// Items is the length of the 1..Items input sequence.
	Items int
	// Producers is the number of senders in the message passing stage.
	Producers int
	// Increments is the number of workers bumping the shared counter.
	Increments int
	// MessageDelay is slept between sends to make interleaving visible.
	MessageDelay time.Duration

	// FailStage names a stage in which a worker should panic.
	FailStage string
	Verbose   bool
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		Workers:      DefaultWorkers,
		Items:        DefaultItems,
		Producers:    DefaultProducers,
		Increments:   DefaultIncrements,
		MessageDelay: DefaultMessageDelay,
	}
}

// FromEnv returns a Config with values from environment variables, falling
// back to defaults for unset or unparsable values.
func FromEnv() *Config {
	cfg := Default()

	if n, ok := envInt(EnvWorkers); ok {
		cfg.Workers = n
	}
	if n, ok := envInt(EnvItems); ok {
		cfg.Items = n
	}
	if n, ok := envInt(EnvProducers); ok {
		cfg.Producers = n
	}
	if n, ok := envInt(EnvIncrements); ok {
		cfg.Increments = n
	}
	if v := os.Getenv(EnvMessageDelay); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MessageDelay = d
		}
	}

	return cfg
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate reports the first invalid field as a *gocoord.ConfigError.
// Workers is deliberately not checked here: the parallel computation stage
// reports a bad worker count itself, before spawning anything.
func (c *Config) Validate() error {
	switch {
	case c.Items < 0:
		return &gocoord.ConfigError{Field: "items", Value: c.Items, Reason: "must not be negative"}
	case c.Producers < 1:
		return &gocoord.ConfigError{Field: "producers", Value: c.Producers, Reason: "must be at least 1"}
	case c.Increments < 0:
		return &gocoord.ConfigError{Field: "increments", Value: c.Increments, Reason: "must not be negative"}
	case c.MessageDelay < 0:
		return &gocoord.ConfigError{Field: "message delay", Value: c.MessageDelay, Reason: "must not be negative"}
	}
	return nil
}

// String renders the settings for the startup log line.
func (c *Config) String() string {
	return fmt.Sprintf("workers=%d items=%d producers=%d increments=%d delay=%s",
		c.Workers, c.Items, c.Producers, c.Increments, c.MessageDelay)
}

// WithWorkers returns a copy with updated worker count
func (c *Config) WithWorkers(n int) *Config {
	cp := *c
	cp.Workers = n
	return &cp
}

// WithItems returns a copy with updated item count
func (c *Config) WithItems(n int) *Config {
	cp := *c
	cp.Items = n
	return &cp
}

// WithMessageDelay returns a copy with updated message delay
func (c *Config) WithMessageDelay(d time.Duration) *Config {
	cp := *c
	cp.MessageDelay = d
	return &cp
}

// WithFailStage returns a copy that injects a worker panic into the named stage
func (c *Config) WithFailStage(stage string) *Config {
	cp := *c
	cp.FailStage = stage
	return &cp
}
