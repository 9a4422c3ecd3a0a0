package mq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stopDispatcher registers a cleanup that stops d and fails the test if
// the worker does not exit in time.
func stopDispatcher[K comparable, V any](t *testing.T, d *Dispatcher[K, V]) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, d.Stop(ctx))
	})
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// intRecorder collects delivered ints in order.
type intRecorder struct {
	mu     sync.Mutex
	values []int
}

func (r *intRecorder) Consume(value int) {
	r.mu.Lock()
	r.values = append(r.values, value)
	r.mu.Unlock()
}

func (r *intRecorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func (r *intRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// ---------------------------------------------------------------------------
// Registry operations
// ---------------------------------------------------------------------------

func TestCreateQueue_Duplicate(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	require.True(t, d.CreateQueue("q"))
	require.False(t, d.CreateQueue("q"), "duplicate CreateQueue must be a no-op")
}

func TestUnknownKey_NoOps(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	// None of these may panic or create state.
	d.Enqueue("missing", 1)
	d.Unsubscribe("missing")
	d.DeleteQueue("missing")
	d.Clear("missing")

	require.Zero(t, d.Len("missing"))
	_, ok := d.QueueStats("missing")
	require.False(t, ok)
}

func TestSubscribe_MissingKey_NoOp(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	rec := &intRecorder{}
	require.False(t, d.Subscribe("later", rec), "Subscribe without a queue must be a no-op")

	// Creating the queue afterwards does not resurrect the subscription.
	require.True(t, d.CreateQueue("later", WithSkipIfNoConsumer(false)))
	d.Enqueue("later", 1)

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, rec.count())
	require.Equal(t, 1, d.Len("later"), "value should stay buffered, not delivered")
}

func TestDeleteQueue_Unsubscribes(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	rec := &intRecorder{}
	require.True(t, d.CreateQueue("q"))
	require.True(t, d.Subscribe("q", rec))

	d.DeleteQueue("q")
	d.Enqueue("q", 1)

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, rec.count())
	require.False(t, d.Subscribe("q", rec), "deleted queue must be gone")
}

// ---------------------------------------------------------------------------
// Delivery
// ---------------------------------------------------------------------------

func TestFIFO_SingleProducer(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)), WithDefaultCapacity(2000))
	stopDispatcher(t, d)

	rec := &intRecorder{}
	require.True(t, d.CreateQueue("q"))
	require.True(t, d.Subscribe("q", rec))

	const n = 1000
	for i := range n {
		d.Enqueue("q", i)
	}

	waitFor(t, func() bool { return rec.count() == n })

	got := rec.snapshot()
	for i, v := range got {
		require.Equal(t, i, v, "FIFO order broken at %d", i)
	}

	stats, ok := d.QueueStats("q")
	require.True(t, ok)
	require.Equal(t, uint64(n), stats.Pushed)
	require.Equal(t, uint64(n), stats.Delivered)
	require.Zero(t, stats.Dropped)
}

func TestBufferedBeforeSubscribe_DropFirst(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	require.True(t, d.CreateQueue("q",
		WithCapacity(3),
		WithPolicy(DropFirst),
		WithSkipIfNoConsumer(false),
	))

	for _, v := range []int{1, 2, 3, 4} {
		d.Enqueue("q", v)
	}
	require.Equal(t, 3, d.Len("q"), "oldest value should have been evicted")

	rec := &intRecorder{}
	require.True(t, d.Subscribe("q", rec))

	waitFor(t, func() bool { return rec.count() == 3 })
	require.Equal(t, []int{2, 3, 4}, rec.snapshot())
}

func TestWaitPolicy_ProducerUnblocksOnConsume(t *testing.T) {
	d := New[string, string](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	require.True(t, d.CreateQueue("q",
		WithCapacity(1),
		WithPolicy(Wait),
		WithSkipIfNoConsumer(false),
	))

	d.Enqueue("q", "a") // buffer full

	pushed := make(chan struct{})
	go func() {
		d.Enqueue("q", "b")
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("Enqueue on a full Wait queue should block")
	case <-time.After(50 * time.Millisecond):
	}

	var mu sync.Mutex
	var got []string
	require.True(t, d.Subscribe("q", ConsumerFunc[string](func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})))

	select {
	case <-pushed:
	case <-time.After(5 * time.Second):
		t.Fatal("blocked Enqueue should complete once the worker consumes")
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a", "b"}, got)
}

func TestTwoQueues_IndependentDelivery(t *testing.T) {
	d := New[int, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	recA := &intRecorder{}
	recB := &intRecorder{}
	require.True(t, d.CreateQueue(1))
	require.True(t, d.CreateQueue(2))
	require.True(t, d.Subscribe(1, recA))
	require.True(t, d.Subscribe(2, recB))

	for i := range 50 {
		d.Enqueue(1, i)
		d.Enqueue(2, i)
		d.Enqueue(2, i)
	}

	waitFor(t, func() bool { return recA.count() == 50 && recB.count() == 100 })
}

func TestNoStarvation_BusyNeighbor(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	busy := &intRecorder{}
	quiet := &intRecorder{}
	require.True(t, d.CreateQueue("busy"))
	require.True(t, d.CreateQueue("quiet"))
	require.True(t, d.Subscribe("busy", busy))
	require.True(t, d.Subscribe("quiet", quiet))

	floodDone := make(chan struct{})
	stopFlood := make(chan struct{})
	go func() {
		defer close(floodDone)
		for {
			select {
			case <-stopFlood:
				return
			default:
				d.Enqueue("busy", 0)
			}
		}
	}()

	for i := range 20 {
		d.Enqueue("quiet", i)
	}

	// The quiet queue must drain even while the busy queue never sleeps.
	waitFor(t, func() bool { return quiet.count() == 20 })

	close(stopFlood)
	<-floodDone
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestStop_Idempotent(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, d.Stop(ctx))
}

func TestStartAfterStop_ResumesDelivery(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	rec := &intRecorder{}
	require.True(t, d.CreateQueue("q"))
	require.True(t, d.Subscribe("q", rec))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	// Enqueue while stopped: buffered, not delivered.
	d.Enqueue("q", 7)
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, rec.count())
	require.Equal(t, 1, d.Len("q"))

	d.Start()
	d.Start() // idempotent

	waitFor(t, func() bool { return rec.count() == 1 })
	require.Equal(t, []int{7}, rec.snapshot())
}

func TestStop_LeavesWaitBlockedProducer_ClearReleases(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))

	require.True(t, d.CreateQueue("q",
		WithCapacity(1),
		WithPolicy(Wait),
		WithSkipIfNoConsumer(false),
	))
	d.Enqueue("q", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	pushed := make(chan struct{})
	go func() {
		d.Enqueue("q", 2)
		close(pushed)
	}()

	// Stop must not release Wait-blocked producers.
	select {
	case <-pushed:
		t.Fatal("producer should stay blocked across Stop")
	case <-time.After(50 * time.Millisecond):
	}

	d.Clear("q")

	select {
	case <-pushed:
	case <-time.After(5 * time.Second):
		t.Fatal("Clear should release the blocked producer")
	}
	require.Equal(t, 1, d.Len("q"), "only the late value should be buffered")
}

// ---------------------------------------------------------------------------
// Suppression
// ---------------------------------------------------------------------------

func TestSkipIfNoConsumer_DefaultDropsUntilSubscribe(t *testing.T) {
	d := New[string, int](WithLogger(slogt.New(t)))
	stopDispatcher(t, d)

	require.True(t, d.CreateQueue("q"))

	d.Enqueue("q", 1)
	d.Enqueue("q", 2)
	require.Zero(t, d.Len("q"), "pushes without a consumer must be discarded")

	rec := &intRecorder{}
	require.True(t, d.Subscribe("q", rec))
	d.Enqueue("q", 3)

	waitFor(t, func() bool { return rec.count() == 1 })
	require.Equal(t, []int{3}, rec.snapshot())

	stats, ok := d.QueueStats("q")
	require.True(t, ok)
	require.Equal(t, uint64(2), stats.Dropped)
}
