package mq

import (
	"log/slog"

	"github.com/xraph/mq/channel"
)

// options collects dispatcher construction settings. It is unexported
// so Option can stay non-generic across Dispatcher instantiations.
type options struct {
	config Config
	logger *slog.Logger
}

// Option configures a Dispatcher at construction time.
type Option func(*options)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the dispatcher's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDefaultCapacity sets the buffer capacity for queues created
// without an explicit WithCapacity option.
func WithDefaultCapacity(n int) Option {
	return func(o *options) { o.config.DefaultCapacity = n }
}

// QueueOption configures a single queue at creation time. Queues
// default to the dispatcher's default capacity, the SkipLast overflow
// policy, and skip-if-no-consumer enabled.
type QueueOption func(*channel.Config)

// WithCapacity sets the queue's buffer capacity.
func WithCapacity(n int) QueueOption {
	return func(cfg *channel.Config) { cfg.Capacity = n }
}

// WithPolicy sets the queue's overflow policy.
func WithPolicy(p Policy) QueueOption {
	return func(cfg *channel.Config) { cfg.Policy = p }
}

// WithSkipIfNoConsumer controls whether pushes are discarded while no
// consumer is bound (true, the default) or buffered for later delivery
// (false).
func WithSkipIfNoConsumer(skip bool) QueueOption {
	return func(cfg *channel.Config) { cfg.SkipIfNoConsumer = skip }
}
