package cache

import (
	"context"
	"time"
)

// Tier composes L1/L2/L3 behind a single lookup/store algorithm.
type Tier struct {
	l1         *L1
	l2         *L2 // nil if L2_URL is unset
	l3         *L3
	defaultTTL TTLPair
}

// NewTier assembles a Tier. l2 may be nil (L2 disabled).
func NewTier(l1 *L1, l2 *L2, l3 *L3, defaultTTL TTLPair) *Tier {
	return &Tier{l1: l1, l2: l2, l3: l3, defaultTTL: defaultTTL}
}

// Get implements the lookup algorithm: L1, then L2 (with promotion to L1 on
// hit), then L3 (with promotion to L1 on hit).
func (t *Tier) Get(ctx context.Context, key string) ([]byte, HitTier, bool) {
	if entry, ok := t.l1.Get(key); ok {
		return entry.Value, TierL1, true
	}

	if v, ok := t.l2.Get(ctx, key); ok {
		t.promoteToL1(key, v, t.defaultTTL.L1)
		return v, TierL2, true
	}

	if v, ok := t.l3.Get(key); ok {
		t.promoteToL1(key, v, t.defaultTTL.L1)
		return v, TierL3, true
	}

	return nil, TierMiss, false
}

// Put implements the store algorithm: always write L1 with the class's L1
// TTL, fire-and-forget write L2 with the class's L2 TTL, never write L3.
func (t *Tier) Put(ctx context.Context, key string, value []byte, class Class) {
	ttl := TTLFor(class, t.defaultTTL)
	now := time.Now()
	expiresL1 := now.Add(ttl.L1)
	t.l1.Put(key, &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: &expiresL1,
		Size:      int64(len(value)),
	})
	t.l2.Put(ctx, key, value, ttl.L2)
}

func (t *Tier) promoteToL1(key string, value []byte, ttl time.Duration) {
	now := time.Now()
	expires := now.Add(ttl)
	t.l1.Put(key, &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: &expires,
		Size:      int64(len(value)),
	})
}

// Ready reports the /ready signal for the cache tier: L1 is always up, L2
// ping status is reported separately so the HTTP handler can mark it
// "skipped" when disabled rather than failing readiness.
func (t *Tier) Ready(ctx context.Context) (l1Up bool, l2Up bool, l2Enabled bool) {
	return true, t.l2.Ping(ctx), t.l2 != nil
}

// L1Stats exposes the L1 occupancy for the /metrics endpoint.
func (t *Tier) L1Stats() Stats {
	return t.l1.Stats()
}

// L2UnavailableCount exposes the cache_l2_unavailable_total counter.
func (t *Tier) L2UnavailableCount() int64 {
	return t.l2.UnavailableCount()
}

// L3Size exposes the number of precomputed entries seeded at startup.
func (t *Tier) L3Size() int {
	return t.l3.Size()
}
