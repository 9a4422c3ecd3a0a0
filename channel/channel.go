package channel

import "sync"

// DefaultCapacity is the buffer capacity used when Config.Capacity is zero.
const DefaultCapacity = 1000

// Policy defines how a channel behaves when a push finds the buffer full.
type Policy int

const (
	// SkipLast rejects the incoming value and leaves the buffer unchanged.
	SkipLast Policy = iota
	// DropFirst evicts the oldest buffered value, then inserts the new one.
	DropFirst
	// Wait blocks the pushing goroutine until capacity frees up.
	Wait
)

// String returns a human-readable policy name for logging.
func (p Policy) String() string {
	switch p {
	case SkipLast:
		return "skip-last"
	case DropFirst:
		return "drop-first"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// Consumer receives values popped from a channel, one at a time. Consume
// is invoked synchronously on the goroutine that drains the channel, so
// implementations must not block indefinitely.
type Consumer[V any] interface {
	Consume(value V)
}

// Config defines per-channel behaviour, fixed at creation time.
type Config struct {
	// Capacity is the maximum number of buffered values. Zero or
	// negative means DefaultCapacity.
	Capacity int

	// Policy selects the overflow behaviour when the buffer is full.
	Policy Policy

	// SkipIfNoConsumer discards pushed values while no consumer is
	// bound instead of buffering them for later delivery.
	SkipIfNoConsumer bool
}

// Stats holds cumulative counters for a single channel.
type Stats struct {
	// Pushed counts values successfully inserted into the buffer.
	Pushed uint64
	// Dropped counts values lost: rejected by SkipLast, evicted by
	// DropFirst, or discarded by SkipIfNoConsumer.
	Dropped uint64
	// Delivered counts values handed to a consumer.
	Delivered uint64
}

// Bounded is a thread-safe, capacity-bounded FIFO with a pluggable
// overflow policy and an optional bound consumer. Any number of
// goroutines may push concurrently; consumption is one value per
// Consume call, in strict push order.
//
// The buffer lock and the consumer-binding lock are independent:
// rebinding a consumer never blocks on buffer traffic and vice versa.
type Bounded[V any] struct {
	mu      sync.Mutex
	notFull sync.Cond
	buf     []V
	head    int
	length  int
	stats   Stats

	policy           Policy
	skipIfNoConsumer bool
	notify           func()

	consumerMu sync.Mutex
	consumer   Consumer[V]
}

// New creates a bounded channel. notify, if non-nil, is invoked after
// every successful insertion, outside the buffer lock.
func New[V any](cfg Config, notify func()) *Bounded[V] {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Bounded[V]{
		buf:              make([]V, capacity),
		policy:           cfg.Policy,
		skipIfNoConsumer: cfg.SkipIfNoConsumer,
		notify:           notify,
	}
	b.notFull.L = &b.mu
	return b
}

// SetConsumer binds consumer to the channel, replacing any previous
// binding. A nil consumer unbinds. Buffered values are retained across
// rebinds.
func (b *Bounded[V]) SetConsumer(consumer Consumer[V]) {
	b.consumerMu.Lock()
	b.consumer = consumer
	b.consumerMu.Unlock()
}

// Push inserts value at the tail of the buffer. If the channel was
// created with SkipIfNoConsumer and no consumer is bound, the value is
// discarded without buffering. If the buffer is full, the overflow
// policy decides: SkipLast discards value, DropFirst evicts the oldest
// buffered value first, and Wait blocks until a slot frees up (via
// Consume or Clear).
func (b *Bounded[V]) Push(value V) {
	if b.skipIfNoConsumer && !b.hasConsumer() {
		b.mu.Lock()
		b.stats.Dropped++
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	if b.length == len(b.buf) {
		switch b.policy {
		case SkipLast:
			b.stats.Dropped++
			b.mu.Unlock()
			return
		case DropFirst:
			b.popLocked()
			b.stats.Dropped++
		case Wait:
			for b.length == len(b.buf) {
				b.notFull.Wait()
			}
		}
	}
	b.buf[(b.head+b.length)%len(b.buf)] = value
	b.length++
	b.stats.Pushed++
	b.mu.Unlock()

	if b.notify != nil {
		b.notify()
	}
}

// Consume pops the oldest buffered value and hands it to the bound
// consumer. It reports whether a value was delivered: false when no
// consumer is bound or the buffer is empty. The consumer callback runs
// after the buffer lock is released; the binding lock is not held
// during delivery either.
func (b *Bounded[V]) Consume() bool {
	b.consumerMu.Lock()
	consumer := b.consumer
	b.consumerMu.Unlock()
	if consumer == nil {
		return false
	}

	b.mu.Lock()
	if b.length == 0 {
		b.mu.Unlock()
		return false
	}
	value := b.popLocked()
	b.stats.Delivered++
	if b.policy == Wait {
		b.notFull.Signal()
	}
	b.mu.Unlock()

	consumer.Consume(value)
	return true
}

// Len returns the current number of buffered values.
func (b *Bounded[V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Clear empties the buffer and releases any goroutines blocked in a
// Wait-policy Push.
func (b *Bounded[V]) Clear() {
	b.mu.Lock()
	var zero V
	for i := 0; i < b.length; i++ {
		b.buf[(b.head+i)%len(b.buf)] = zero
	}
	b.head = 0
	b.length = 0
	b.mu.Unlock()

	if b.policy == Wait {
		b.notFull.Broadcast()
	}
}

// Stats returns a snapshot of the channel's cumulative counters.
func (b *Bounded[V]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Bounded[V]) hasConsumer() bool {
	b.consumerMu.Lock()
	defer b.consumerMu.Unlock()
	return b.consumer != nil
}

// popLocked removes and returns the head value. Callers hold b.mu and
// have checked length > 0.
func (b *Bounded[V]) popLocked() V {
	value := b.buf[b.head]
	var zero V
	b.buf[b.head] = zero
	b.head = (b.head + 1) % len(b.buf)
	b.length--
	return value
}
