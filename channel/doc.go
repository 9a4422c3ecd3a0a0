// Package channel provides the bounded FIFO building block used by the
// dispatcher: a thread-safe, capacity-bounded queue for one key, with a
// pluggable overflow policy and an optional bound consumer.
//
// # Overflow Policies
//
// A push that finds the buffer full applies the channel's [Policy]:
//
//	channel.SkipLast   // reject the incoming value, buffer unchanged
//	channel.DropFirst  // evict the oldest value, then insert
//	channel.Wait       // block the pusher until capacity frees up
//
// The policy is fixed for the channel's lifetime.
//
// # Consumers
//
// At most one [Consumer] is bound at a time; [Bounded.SetConsumer]
// rebinds it at any point without touching buffered values. With
// [Config.SkipIfNoConsumer] set, pushes are silently discarded while no
// consumer is bound instead of buffering for later delivery.
//
// [Bounded.Consume] delivers at most one value per call, synchronously
// on the calling goroutine. The dispatcher's worker is the intended
// caller, but nothing prevents direct use:
//
//	ch := channel.New[int](channel.Config{Capacity: 64}, nil)
//	ch.SetConsumer(myConsumer)
//	for ch.Consume() {
//	}
//
// # Notification
//
// The notify callback passed to [New] runs after every successful
// insertion, outside the buffer lock. The dispatcher uses it to wake
// its idle worker; it is not an ownership relation and may be nil.
package channel
