package breaker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshot is the aggregated view over a breaker's rolling window: the sum
// of every shared-store bucket inside the window plus whatever has been
// recorded locally since the last flush.
type Snapshot struct {
	Success   uint64
	Failure   uint64
	Total     uint64
	FetchedAt time.Time
}

// FailureRatio returns Failure/Total, or 0 if Total is 0.
func (s Snapshot) FailureRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failure) / float64(s.Total)
}

// Aggregator is the window aggregator (component C3). It blends the local
// buffer (C1) with the shared store's bucket history (C2) into a cached
// Snapshot, refreshed at most once per ReadDelaySeconds -- mirroring
// __fetch_past_window_from_store's "past_window_end" staleness check,
// generalized from a per-breaker dict entry to a typed, concurrency-safe
// cache entry.
//
// Concurrent View calls during a refresh collapse onto a single in-flight
// refresh via singleflight, so a burst of concurrent callers during a
// cache miss produces exactly one shared-store read and one buffer flush,
// never several racing ones.
type Aggregator struct {
	name   string
	buffer *LocalBuffer
	store  SharedStore
	clock  Clock

	group singleflight.Group

	mu        sync.RWMutex
	settings  Settings
	cached    Snapshot
	fetchedAt time.Time
	hasCache  bool
}

// settingsSnapshot returns the aggregator's current Settings.
func (a *Aggregator) settingsSnapshot() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// SetSettings updates the aggregator's Settings, used by
// Strategy.UpdateSettings to keep the aggregator's window/read-delay in
// sync with a live settings change.
func (a *Aggregator) SetSettings(settings Settings) {
	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()
}

// NewAggregator constructs an Aggregator for one breaker's window.
func NewAggregator(settings Settings, buffer *LocalBuffer, store SharedStore, clock Clock) *Aggregator {
	return &Aggregator{
		name:     settings.Name,
		settings: settings,
		buffer:   buffer,
		store:    store,
		clock:    clock,
	}
}

// View returns the current aggregated snapshot, refreshing it first if the
// cached value is older than ReadDelaySeconds.
func (a *Aggregator) View(ctx context.Context) Snapshot {
	a.mu.RLock()
	fresh := a.hasCache && a.clock.Now().Sub(a.fetchedAt) <= a.settings.readDelayDuration()
	cached := a.cached
	a.mu.RUnlock()

	if fresh {
		return cached
	}

	v, _, _ := a.group.Do(a.name, func() (interface{}, error) {
		// A caller that saw a stale cache may get here just after another
		// refresh finished; reuse that result instead of refreshing again.
		a.mu.RLock()
		fresh := a.hasCache && a.clock.Now().Sub(a.fetchedAt) <= a.settings.readDelayDuration()
		cached := a.cached
		a.mu.RUnlock()
		if fresh {
			return cached, nil
		}
		return a.refresh(ctx), nil
	})
	return v.(Snapshot)
}

// refresh flushes the local buffer to the shared store, reads the shared
// store's bucket history for the window, and caches the merged result. A
// successful flush makes the drained amount visible via the bucket sum
// below; a failed flush instead folds it back into the buffer, making it
// visible via the live buffer peek instead -- either way it is counted
// exactly once, never both.
func (a *Aggregator) refresh(ctx context.Context) Snapshot {
	now := a.clock.Now()
	settings := a.settingsSnapshot()

	drainedSuccess, drainedFailure := a.buffer.Drain()
	if err := a.store.FlushCounts(ctx, a.name, now, drainedSuccess, drainedFailure); err != nil {
		// Fail open: the flush failed, so fold the drained amount back
		// into the local buffer rather than losing it outright.
		if drainedSuccess > 0 {
			a.buffer.success.Add(drainedSuccess)
		}
		if drainedFailure > 0 {
			a.buffer.failure.Add(drainedFailure)
		}
	}

	from := now.Add(-settings.windowDuration())
	buckets, _ := a.store.ReadRange(ctx, a.name, from, now)

	var success, failure uint64
	for _, c := range buckets {
		success += c.Success
		failure += c.Failure
	}
	// Whatever is in the buffer now (the failed-flush fold-back above, plus
	// anything a concurrent RecordSuccess/RecordFailure added since the
	// drain) is not yet visible to the shared store, but is visible to this
	// replica, so it is folded in directly rather than waiting for the next
	// flush cycle.
	liveSuccess, liveFailure := a.buffer.Peek()
	success += liveSuccess
	failure += liveFailure

	snap := Snapshot{
		Success:   success,
		Failure:   failure,
		Total:     success + failure,
		FetchedAt: now,
	}

	a.mu.Lock()
	a.cached = snap
	a.fetchedAt = now
	a.hasCache = true
	a.mu.Unlock()

	return snap
}

// Invalidate forces the next View call to refresh regardless of staleness.
// Used by tests and by UpdateSettings when WindowSeconds changes.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.hasCache = false
	a.mu.Unlock()
}
