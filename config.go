package mq

import "github.com/xraph/mq/channel"

// Config holds configuration for the Dispatcher.
type Config struct {
	// DefaultCapacity is the buffer capacity for queues created without
	// an explicit WithCapacity option.
	DefaultCapacity int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultCapacity: channel.DefaultCapacity,
	}
}
