package breaker

import "sync/atomic"

// LocalBuffer is the in-process counter buffer (component C1). Callers
// record outcomes with lock-free atomic increments; a flush drains the
// buffer and hands the drained totals to the shared store writer. This
// mirrors the teacher's counts.go convention of all-atomic fields with no
// mutex on the hot path, generalized from a single Counts struct to a
// success/failure pair plus a drain-on-flush instead of reset-on-interval.
type LocalBuffer struct {
	success atomic.Uint64
	failure atomic.Uint64
}

// RecordSuccess increments the buffered success count.
func (b *LocalBuffer) RecordSuccess() {
	b.success.Add(1)
}

// RecordFailure increments the buffered failure count.
func (b *LocalBuffer) RecordFailure() {
	b.failure.Add(1)
}

// Peek returns the current buffered counts without draining them.
func (b *LocalBuffer) Peek() (success, failure uint64) {
	return b.success.Load(), b.failure.Load()
}

// Drain atomically swaps both counters to zero and returns what they held.
// Used by the aggregator refresh path (C3) to claim the buffered counts
// for a shared-store write (C2) without losing concurrent
// RecordSuccess/RecordFailure calls that race the drain.
func (b *LocalBuffer) Drain() (success, failure uint64) {
	return b.success.Swap(0), b.failure.Swap(0)
}

// IsEmpty reports whether both counters are currently zero.
func (b *LocalBuffer) IsEmpty() bool {
	return b.success.Load() == 0 && b.failure.Load() == 0
}
