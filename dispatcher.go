package mq

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/mq/channel"
)

// Dispatcher routes values enqueued under keys of type K to per-key
// bounded channels and drains every subscribed channel with a single
// background worker, round-robin, one delivery attempt per key per
// pass.
//
// All methods are safe to call concurrently with each other and with
// the running worker. Create a Dispatcher with New; the worker starts
// immediately.
type Dispatcher[K comparable, V any] struct {
	config Config
	logger *slog.Logger

	// registry maps keys to their channels. Guarded by registryMu,
	// independent of the per-channel buffer locks.
	registryMu sync.RWMutex
	registry   map[K]*channel.Bounded[V]

	// active is the set of subscribed keys the worker visits. Always a
	// subset of the registry's keys at the moment of mutation; the
	// worker tolerates snapshot staleness.
	activeMu sync.Mutex
	active   map[K]struct{}

	// wakeCh is the shared coalesced wake signal: any successful push
	// into any channel makes it ready. Capacity 1, never closed.
	wakeCh chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Dispatcher and starts its worker goroutine.
func New[K comparable, V any](opts ...Option) *Dispatcher[K, V] {
	o := options{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Dispatcher[K, V]{
		config:   o.config,
		logger:   o.logger,
		registry: make(map[K]*channel.Bounded[V]),
		active:   make(map[K]struct{}),
		wakeCh:   make(chan struct{}, 1),
	}
	d.Start()
	return d
}

// CreateQueue registers a new queue under key. It reports whether the
// queue was created: false means a queue already exists for key and
// nothing changed. Creating a queue does not make it active; that
// happens on Subscribe.
func (d *Dispatcher[K, V]) CreateQueue(key K, opts ...QueueOption) bool {
	cfg := channel.Config{
		Capacity:         d.config.DefaultCapacity,
		Policy:           SkipLast,
		SkipIfNoConsumer: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	d.registryMu.Lock()
	defer d.registryMu.Unlock()

	if _, ok := d.registry[key]; ok {
		return false
	}
	d.registry[key] = channel.New[V](cfg, d.wake)

	d.logger.Debug("queue created",
		slog.Any("key", key),
		slog.String("policy", cfg.Policy.String()),
		slog.Int("capacity", cfg.Capacity),
	)
	return true
}

// DeleteQueue unsubscribes key and removes its queue, discarding any
// buffered values. Unknown keys are a no-op. Producers blocked in a
// Wait-policy push against the deleted queue are not released; call
// Clear first if that matters.
func (d *Dispatcher[K, V]) DeleteQueue(key K) {
	d.Unsubscribe(key)

	d.registryMu.Lock()
	_, existed := d.registry[key]
	delete(d.registry, key)
	d.registryMu.Unlock()

	if existed {
		d.logger.Debug("queue deleted", slog.Any("key", key))
	}
}

// Subscribe binds consumer to the queue for key and marks the key
// active, which is what makes the worker visit it. It reports whether
// the subscription took effect: false means no queue exists for key
// and nothing changed.
func (d *Dispatcher[K, V]) Subscribe(key K, consumer Consumer[V]) bool {
	ch := d.lookup(key)
	if ch == nil {
		return false
	}
	ch.SetConsumer(consumer)

	d.activeMu.Lock()
	d.active[key] = struct{}{}
	d.activeMu.Unlock()

	// The queue may already hold values buffered before this
	// subscription; make sure the worker takes a pass.
	d.wake()
	return true
}

// Unsubscribe clears the consumer bound to key's queue and removes key
// from the active set. Unknown keys are a no-op. Buffered values are
// retained.
func (d *Dispatcher[K, V]) Unsubscribe(key K) {
	if ch := d.lookup(key); ch != nil {
		ch.SetConsumer(nil)
	}

	d.activeMu.Lock()
	delete(d.active, key)
	d.activeMu.Unlock()
}

// Enqueue routes value to the queue for key. Unknown keys are a no-op.
// Enqueue blocks only when the queue is full and was created with the
// Wait policy.
func (d *Dispatcher[K, V]) Enqueue(key K, value V) {
	if ch := d.lookup(key); ch != nil {
		ch.Push(value)
	}
}

// Len returns the number of values buffered for key, zero for unknown
// keys.
func (d *Dispatcher[K, V]) Len(key K) int {
	if ch := d.lookup(key); ch != nil {
		return ch.Len()
	}
	return 0
}

// Clear empties key's queue and releases any producers blocked in a
// Wait-policy push against it. Unknown keys are a no-op.
func (d *Dispatcher[K, V]) Clear(key K) {
	if ch := d.lookup(key); ch != nil {
		ch.Clear()
	}
}

// QueueStats returns the cumulative counters for key's queue and
// whether the queue exists.
func (d *Dispatcher[K, V]) QueueStats(key K) (channel.Stats, bool) {
	if ch := d.lookup(key); ch != nil {
		return ch.Stats(), true
	}
	return channel.Stats{}, false
}

// Start launches the worker goroutine. It is idempotent, and may be
// called again after Stop to resume processing.
func (d *Dispatcher[K, V]) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})

	d.logger.Debug("dispatcher worker starting")

	d.wg.Add(1)
	go d.run(d.stopCh)
}

// Stop signals the worker to exit and waits for it, bounded by ctx. It
// is idempotent; a stopped dispatcher still accepts Enqueue and
// registry changes, it just delivers nothing until Start is called
// again.
//
// Stop does not release producers blocked in a Wait-policy push; Clear
// the affected queues (or keep consuming) if they must be unblocked.
func (d *Dispatcher[K, V]) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Debug("dispatcher worker stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out waiting for worker")
		return ctx.Err()
	}
}

// wake sets the shared wake signal. The send coalesces: a signal
// already pending absorbs any number of further wakes.
func (d *Dispatcher[K, V]) wake() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// run is the worker loop. Each pass snapshots the active keys and
// attempts one delivery per key; the worker sleeps only when no wake
// arrived during the pass and every currently active channel is empty.
func (d *Dispatcher[K, V]) run(stopCh <-chan struct{}) {
	defer d.wg.Done()

	for {
		keys := d.activeKeys()
		if len(keys) == 0 {
			select {
			case <-stopCh:
				return
			case <-d.wakeCh:
			}
			continue
		}

		for _, key := range keys {
			// Clear the pending wake before the delivery attempt so
			// that a push racing with this pass leaves a fresh signal
			// behind.
			select {
			case <-d.wakeCh:
			default:
			}

			// The snapshot may be stale: a concurrent DeleteQueue can
			// remove the channel between snapshot and lookup.
			if ch := d.lookup(key); ch != nil {
				ch.Consume()
			}

			select {
			case <-stopCh:
				return
			default:
			}
		}

		if d.idle() {
			select {
			case <-stopCh:
				return
			case <-d.wakeCh:
			}
		}
	}
}

// idle reports whether every currently active channel is empty. It
// re-reads the active set rather than reusing the pass snapshot so a
// queue subscribed mid-pass cannot be slept through.
func (d *Dispatcher[K, V]) idle() bool {
	for _, key := range d.activeKeys() {
		if ch := d.lookup(key); ch != nil && ch.Len() > 0 {
			return false
		}
	}
	return true
}

func (d *Dispatcher[K, V]) activeKeys() []K {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()

	keys := make([]K, 0, len(d.active))
	for key := range d.active {
		keys = append(keys, key)
	}
	return keys
}

func (d *Dispatcher[K, V]) lookup(key K) *channel.Bounded[V] {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()
	return d.registry[key]
}
