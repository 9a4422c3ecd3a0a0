// Package mq provides a generic in-process multi-queue dispatcher.
// Producers enqueue typed values under a queue key; a single worker
// goroutine drains every subscribed queue round-robin and hands values
// to the queue's consumer, one at a time.
//
// Mq is a library, not a service: there is no persistence, no wire
// protocol, and no scheduling beyond round-robin fairness. The value of
// the package is the concurrency coordination — bounded buffers with
// overflow policies, dynamic queue (un)registration while the worker
// runs, and an idle/wake protocol that neither busy-polls nor misses
// wakeups.
//
// # Quick Start
//
//	d := mq.New[string, int]()
//
//	d.CreateQueue("metrics")
//	d.Subscribe("metrics", mq.ConsumerFunc[int](func(v int) {
//	    fmt.Println("got", v)
//	}))
//
//	d.Enqueue("metrics", 42)
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//	d.Stop(ctx)
//
// # Architecture
//
// Each queue is a [channel.Bounded] — a capacity-bounded FIFO with one
// of three overflow policies (SkipLast, DropFirst, Wait) and at most
// one bound consumer. The Dispatcher owns the key-to-channel registry
// and the set of active (subscribed) keys, and runs one background
// worker. Every successful insertion into any channel sets a shared,
// coalesced wake signal; the worker sleeps only when a full pass over
// the active keys saw no new insertion and found every channel empty.
//
// Consumers run synchronously on the worker goroutine. A slow consumer
// therefore stalls delivery for all queues; per-queue FIFO order is
// guaranteed, cross-queue ordering is not.
package mq
