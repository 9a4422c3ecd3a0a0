package mq

import "github.com/xraph/mq/channel"

// Consumer receives values delivered by the dispatcher worker. Consume
// runs synchronously on the worker goroutine: it must not block
// indefinitely, and a long-running callback stalls delivery for every
// other active queue.
type Consumer[V any] = channel.Consumer[V]

// ConsumerFunc adapts an ordinary function to the Consumer interface.
type ConsumerFunc[V any] func(value V)

// Consume calls f(value).
func (f ConsumerFunc[V]) Consume(value V) { f(value) }

// Policy is a queue's overflow policy. See the channel package for the
// exact semantics of each value.
type Policy = channel.Policy

// Overflow policies, re-exported for use with WithPolicy.
const (
	SkipLast  = channel.SkipLast
	DropFirst = channel.DropFirst
	Wait      = channel.Wait
)
