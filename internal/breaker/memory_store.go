package breaker

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process SharedStore, used in tests in place of
// Redis, and as the degenerate single-replica deployment where every call
// wrapper shares one process. It applies a TTL the way a real bucket store
// does (expired buckets stop being returned; here they are filtered out at
// read time, not deleted), without requiring a live Redis instance in test tooling, the
// same role the sliding-window in-memory bucket list plays in the
// NTbankey1 circuit breaker.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[time.Time]BucketCounts
	ttl     time.Duration
}

// NewMemoryStore constructs a MemoryStore whose buckets expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]map[time.Time]BucketCounts),
		ttl:     ttl,
	}
}

// FlushCounts adds success/failure counts to the bucket for t.
func (m *MemoryStore) FlushCounts(_ context.Context, name string, t time.Time, success, failure uint64) error {
	if success == 0 && failure == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := t.Truncate(time.Second)
	perName, ok := m.buckets[name]
	if !ok {
		perName = make(map[time.Time]BucketCounts)
		m.buckets[name] = perName
	}
	counts := perName[bucket]
	counts.Success += success
	counts.Failure += failure
	perName[bucket] = counts
	return nil
}

// ReadRange returns non-expired bucket counts in [from, to].
func (m *MemoryStore) ReadRange(_ context.Context, name string, from, to time.Time) (map[time.Time]BucketCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[time.Time]BucketCounts)
	perName, ok := m.buckets[name]
	if !ok {
		return result, nil
	}
	now := to
	for ts, counts := range perName {
		if ts.Before(from) || ts.After(to) {
			continue
		}
		if m.ttl > 0 && now.Sub(ts) > m.ttl {
			continue
		}
		result[ts] = counts
	}
	return result, nil
}
