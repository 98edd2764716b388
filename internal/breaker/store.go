package breaker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// bucketTimestampFormat matches the original per-second bucket key layout
// exactly: "2006-01-02T15:04:05".
const bucketTimestampFormat = "2006-01-02T15:04:05"

// BucketCounts holds the success/failure totals recorded for one
// second-granularity bucket.
type BucketCounts struct {
	Success uint64
	Failure uint64
}

// SharedStore is the shared window store (component C2): a per-second
// bucket history that every replica writes to and reads from, keyed by
// breaker name and timestamp. Flushes are idempotent adds (INCRBY), reads
// are a ranged MGET, matching the bucket protocol in the original
// DistributedPodsStrategy (__format_success_cache_key /
// __fetch_past_window_from_store).
type SharedStore interface {
	// FlushCounts adds success/failure counts to the buckets for t. Safe
	// to retry: repeated calls with the same arguments simply add more,
	// so callers must only retry a flush that is known not to have
	// already been double-counted by the buffer drain it originated
	// from (see Aggregator.refresh).
	FlushCounts(ctx context.Context, name string, t time.Time, success, failure uint64) error

	// ReadRange returns bucket counts for every second in [from, to],
	// keyed by truncated-to-second timestamp. Buckets with no recorded
	// activity are omitted, not zero-valued.
	ReadRange(ctx context.Context, name string, from, to time.Time) (map[time.Time]BucketCounts, error)
}

func successKey(name string, t time.Time) string {
	return fmt.Sprintf("breaker:%s:success:-%s", name, t.UTC().Format(bucketTimestampFormat))
}

func failureKey(name string, t time.Time) string {
	return fmt.Sprintf("breaker:%s:failure:-%s", name, t.UTC().Format(bucketTimestampFormat))
}

// RedisStore is the production SharedStore, backed by go-redis v9. It
// follows the fail-open / bounded-context-deadline discipline used for
// Redis access elsewhere in the fleet (the sibling gateway's RedisBreaker
// applies the same bounded timeout and treats Redis errors as "allow", not
// as a hard failure) rather than letting a Redis outage itself trip every
// breaker in the fleet.
type RedisStore struct {
	client      redis.UniversalClient
	windowTTL   time.Duration
	callTimeout time.Duration
	retry       backoff.BackOff
	log         *zap.Logger
}

// RedisStoreOption customizes a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithCallTimeout overrides the per-call context deadline applied to every
// Redis round trip. Default: 100ms.
func WithCallTimeout(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.callTimeout = d }
}

// WithRetryPolicy overrides the backoff.BackOff used to retry a failed
// flush. Default: backoff.NewExponentialBackOff with a 500ms max elapsed
// time, matching a single request's patience budget.
func WithRetryPolicy(b backoff.BackOff) RedisStoreOption {
	return func(s *RedisStore) { s.retry = b }
}

// WithLogger attaches a zap logger used for flush/read failure reporting.
func WithLogger(log *zap.Logger) RedisStoreOption {
	return func(s *RedisStore) { s.log = log }
}

// NewRedisStore constructs a RedisStore. windowSeconds determines the
// bucket TTL (2x the window, so a bucket always outlives every window that
// could still read it).
func NewRedisStore(client redis.UniversalClient, windowSeconds int, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:      client,
		windowTTL:   2 * time.Duration(windowSeconds) * time.Second,
		callTimeout: 100 * time.Millisecond,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry == nil {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = 500 * time.Millisecond
		s.retry = eb
	}
	return s
}

// FlushCounts writes buffered counts with INCRBY + EXPIREAT, retrying
// transient failures via the configured backoff policy. Each retry attempt
// reuses the same operation (increment by the same amount), which is safe
// because INCRBY is additive and idempotent only in the sense that the
// caller (Aggregator.refresh) guarantees it calls FlushCounts exactly once
// per drained amount -- retries here are retries of delivering that one
// amount, not re-draining the buffer.
func (s *RedisStore) FlushCounts(ctx context.Context, name string, t time.Time, success, failure uint64) error {
	if success == 0 && failure == 0 {
		return nil
	}
	expireAt := t.Add(s.windowTTL)

	op := func() error {
		cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		pipe := s.client.TxPipeline()
		if success > 0 {
			key := successKey(name, t)
			pipe.IncrBy(cctx, key, int64(success))
			pipe.ExpireAt(cctx, key, expireAt)
		}
		if failure > 0 {
			key := failureKey(name, t)
			pipe.IncrBy(cctx, key, int64(failure))
			pipe.ExpireAt(cctx, key, expireAt)
		}
		_, err := pipe.Exec(cctx)
		return err
	}

	err := backoff.Retry(op, s.retry)
	if err != nil {
		s.log.Warn("shared store flush failed",
			zap.String("breaker", name), zap.Error(err))
	}
	return err
}

// ReadRange performs a ranged MGET across every per-second bucket key in
// [from, to], mirroring fetch_window_data_from_redis's per-second key
// fan-out. A Redis error or timeout fails open: it returns an empty map
// and a nil error, so a store outage degrades to "trust the local buffer
// only" rather than tripping every breaker in the fleet.
func (s *RedisStore) ReadRange(ctx context.Context, name string, from, to time.Time) (map[time.Time]BucketCounts, error) {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	var timestamps []time.Time
	var successKeys, failureKeys []string
	for t := from.Truncate(time.Second); !t.After(to); t = t.Add(time.Second) {
		timestamps = append(timestamps, t)
		successKeys = append(successKeys, successKey(name, t))
		failureKeys = append(failureKeys, failureKey(name, t))
	}
	if len(timestamps) == 0 {
		return map[time.Time]BucketCounts{}, nil
	}

	successVals, err := s.client.MGet(cctx, successKeys...).Result()
	if err != nil {
		s.log.Warn("shared store read failed, falling back to local buffer only",
			zap.String("breaker", name), zap.Error(err))
		return map[time.Time]BucketCounts{}, nil
	}
	failureVals, err := s.client.MGet(cctx, failureKeys...).Result()
	if err != nil {
		s.log.Warn("shared store read failed, falling back to local buffer only",
			zap.String("breaker", name), zap.Error(err))
		return map[time.Time]BucketCounts{}, nil
	}

	result := make(map[time.Time]BucketCounts, len(timestamps))
	for i, ts := range timestamps {
		success := parseCount(successVals[i])
		failure := parseCount(failureVals[i])
		if success == 0 && failure == 0 {
			continue
		}
		result[ts] = BucketCounts{Success: success, Failure: failure}
	}
	return result, nil
}

func parseCount(v interface{}) uint64 {
	if v == nil {
		return 0
	}
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n uint64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0
	}
	return n
}
