// File: server/options.go
// Package server defines functional options for server initialization.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"os"

	"github.com/rs/zerolog"
)

// Config holds server parameters immutable per run.
type Config struct {
	Workers       int            // executor worker goroutines
	QueueCapacity int            // bounded ring capacity
	Logger        zerolog.Logger // structured logger for server events
}

func defaultConfig() *Config {
	return &Config{
		Workers:       4,
		QueueCapacity: 1024,
		Logger:        zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

// Option customizes server initialization.
type Option func(*Config)

// WithWorkers sets the number of pool worker goroutines.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithQueueCapacity sets the bounded ring capacity.
func WithQueueCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueCapacity = n
		}
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
