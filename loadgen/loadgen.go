// Package loadgen provides a small producer harness and a counting
// consumer for exercising a dispatcher: generators emit a fixed value
// into a queue a fixed number of times, round-robin across generators,
// with optional token-bucket pacing.
package loadgen

import (
	"context"

	"golang.org/x/time/rate"
)

// Enqueuer is the slice of the dispatcher surface the harness needs.
// *mq.Dispatcher satisfies it.
type Enqueuer[K comparable, V any] interface {
	Enqueue(key K, value V)
}

// Generator emits Value into the queue for Key, Count times.
type Generator[K comparable, V any] struct {
	Key   K
	Value V

	// Count is the total number of emissions.
	Count int

	// Rate is the sustained emission rate in values per second.
	// Zero emits as fast as the enqueue path allows.
	Rate float64

	// Burst is the token-bucket burst size. Defaults to 1 when Rate is
	// set.
	Burst int
}

type genState[K comparable, V any] struct {
	gen       Generator[K, V]
	remaining int
	limiter   *rate.Limiter
}

// Run emits every generator's values through q, visiting the
// generators round-robin (one emission per generator per round, paced
// generators waiting their turn). It returns when all generators are
// exhausted, or early with ctx.Err() if the context is cancelled.
func Run[K comparable, V any](ctx context.Context, q Enqueuer[K, V], generators []Generator[K, V]) error {
	states := make([]*genState[K, V], 0, len(generators))
	total := 0
	for _, g := range generators {
		s := &genState[K, V]{gen: g, remaining: g.Count}
		if g.Rate > 0 {
			burst := g.Burst
			if burst <= 0 {
				burst = 1
			}
			s.limiter = rate.NewLimiter(rate.Limit(g.Rate), burst)
		}
		states = append(states, s)
		total += g.Count
	}

	for total > 0 {
		for _, s := range states {
			if s.remaining == 0 {
				continue
			}
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return err
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}
			q.Enqueue(s.gen.Key, s.gen.Value)
			s.remaining--
			total--
		}
	}
	return nil
}
