package loadgen

import "sync"

// Tally is a consumer that counts how many times each value was
// delivered to it. Safe for concurrent use.
type Tally[V comparable] struct {
	mu     sync.Mutex
	counts map[V]int
	total  int
}

// NewTally creates an empty tally.
func NewTally[V comparable]() *Tally[V] {
	return &Tally[V]{counts: make(map[V]int)}
}

// Consume records one occurrence of value. It implements the
// dispatcher's consumer contract.
func (t *Tally[V]) Consume(value V) {
	t.mu.Lock()
	t.counts[value]++
	t.total++
	t.mu.Unlock()
}

// Count returns how many times value has been consumed.
func (t *Tally[V]) Count(value V) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[value]
}

// Total returns the number of values consumed across all values.
func (t *Tally[V]) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Counts returns a snapshot of every observed value and its count.
func (t *Tally[V]) Counts() map[V]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[V]int, len(t.counts))
	for value, n := range t.counts {
		snapshot[value] = n
	}
	return snapshot
}
