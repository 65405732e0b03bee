package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
)

// L2 wraps a shared Redis store, structurally grounded on
// core.RedisDiscovery's namespaced-key connection pattern. An unreachable L2
// is treated as a miss, logged at warn level and counted, never surfaced as
// an error to the caller.
type L2 struct {
	client    *redis.Client
	namespace string
	logger    logging.Logger

	// unavailableCount is incremented from Get/Put, both of which fire
	// concurrently from the orchestrator's per-engine workflow fan-out
	// goroutines against the single shared *Tier/*L2, so it is an
	// atomic.Int64 rather than a plain int64, matching resilience.Breaker's
	// guarded-shared-state treatment of concurrently-touched fields.
	unavailableCount atomic.Int64
}

// NewL2 builds an L2 tier against a redis URL (e.g. "redis://host:6379/0").
// A nil *L2 (constructed when L2_URL is unset) is always treated as
// unavailable by Tier.
func NewL2(redisURL, namespace string, logger logging.Logger) (*L2, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &L2{
		client:    redis.NewClient(opts),
		namespace: namespace,
		logger:    logger.WithComponent("cache.l2"),
	}, nil
}

func (l *L2) key(k string) string {
	return l.namespace + ":cache:" + k
}

// Get returns the stored bytes for key, or ok=false on miss or on any Redis
// failure (which is logged, not returned as an error).
func (l *L2) Get(ctx context.Context, key string) ([]byte, bool) {
	if l == nil {
		return nil, false
	}
	v, err := l.client.Get(ctx, l.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		l.unavailableCount.Add(1)
		l.logger.WarnWithContext(ctx, "L2 cache unavailable, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}
	return v, true
}

// Put stores value under key with the given TTL, fire-and-forget: failures
// are logged but never surfaced to the caller.
func (l *L2) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if l == nil {
		return
	}
	if err := l.client.Set(ctx, l.key(key), value, ttl).Err(); err != nil {
		l.unavailableCount.Add(1)
		l.logger.WarnWithContext(ctx, "L2 cache store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Ping reports whether L2 is reachable, used by GET /ready.
func (l *L2) Ping(ctx context.Context) bool {
	if l == nil {
		return true // a disabled L2 is reported as explicitly skipped, not down
	}
	return l.client.Ping(ctx).Err() == nil
}

// UnavailableCount returns the number of Get/Put calls that fell back to a
// miss due to Redis errors, exposed as the cache_l2_unavailable_total metric.
func (l *L2) UnavailableCount() int64 {
	if l == nil {
		return 0
	}
	return l.unavailableCount.Load()
}

// Close releases the underlying connection pool.
func (l *L2) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}
