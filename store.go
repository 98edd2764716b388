package distributedbreaker

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/distributedbreaker/internal/breaker"
)

// RedisStore is the production SharedStore, backed by go-redis. Bucket
// writes use a bounded per-call context deadline and fail open on a Redis
// outage rather than propagating the outage into every breaker's trip
// decision.
type RedisStore = breaker.RedisStore

// MemoryStore is an in-process SharedStore, suitable for tests and
// single-replica deployments.
type MemoryStore = breaker.MemoryStore

// RedisStoreOption customizes a RedisStore.
type RedisStoreOption = breaker.RedisStoreOption

// WithCallTimeout overrides the per-call Redis context deadline. Default:
// 100ms.
func WithCallTimeout(d time.Duration) RedisStoreOption {
	return breaker.WithCallTimeout(d)
}

// WithRetryPolicy overrides the backoff policy used to retry a failed
// flush.
func WithRetryPolicy(b backoff.BackOff) RedisStoreOption {
	return breaker.WithRetryPolicy(b)
}

// WithStoreLogger attaches a structured logger used for shared-store
// flush/read failure reporting.
func WithStoreLogger(log *zap.Logger) RedisStoreOption {
	return breaker.WithLogger(log)
}

// NewRedisStore constructs a RedisStore. windowSeconds determines the
// bucket TTL (2x the window).
func NewRedisStore(client redis.UniversalClient, windowSeconds int, opts ...RedisStoreOption) *RedisStore {
	return breaker.NewRedisStore(client, windowSeconds, opts...)
}

// NewMemoryStore constructs a MemoryStore whose buckets expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return breaker.NewMemoryStore(ttl)
}

// NewRedisClient returns a go-redis client configured with pool sizing and
// timeouts appropriate for a breaker's shared store: short read/write
// timeouts, since a slow Redis should degrade a breaker's trip decision
// (fail open), not add latency to the caller's own request path.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})
}
