package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
)

// newTestL2 builds an L2 against a miniredis instance, following the
// established pack pattern for Redis-dependent unit tests.
func newTestL2(t *testing.T) *L2 {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return &L2{
		client:    redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		namespace: "test",
		logger:    logging.NoOpLogger{},
	}
}

// End-to-end scenario 4: L1 empty, L2 holds the key. A lookup promotes the
// entry to L1 and reports tier=L2; the next lookup is served from L1 without
// consulting L2 again.
func TestTierGetPromotesL2HitToL1(t *testing.T) {
	l1 := NewL1(1 << 20)
	l2 := newTestL2(t)
	l3, err := LoadL3("")
	require.NoError(t, err)
	tier := NewTier(l1, l2, l3, TTLPair{L1: time.Minute, L2: time.Minute})

	ctx := context.Background()
	l2.Put(ctx, "k1", []byte(`{"sum":5}`), time.Minute)

	v, tierHit, ok := tier.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, TierL2, tierHit)
	assert.Equal(t, []byte(`{"sum":5}`), v)

	// Promoted into L1: a second lookup must be served from L1.
	if entry, ok := l1.Get("k1"); !ok {
		t.Fatal("expected promotion into L1 after an L2 hit")
	} else {
		assert.Equal(t, []byte(`{"sum":5}`), entry.Value)
	}

	_, tierHit2, ok2 := tier.Get(ctx, "k1")
	require.True(t, ok2)
	assert.Equal(t, TierL1, tierHit2)
}

func TestTierGetFallsBackThroughL3(t *testing.T) {
	l1 := NewL1(1 << 20)
	l3 := &L3{entries: map[string][]byte{"k2": []byte(`{"seeded":true}`)}}
	tier := NewTier(l1, nil, l3, TTLPair{L1: time.Minute, L2: time.Minute})

	ctx := context.Background()
	v, tierHit, ok := tier.Get(ctx, "k2")
	require.True(t, ok)
	assert.Equal(t, TierL3, tierHit)
	assert.Equal(t, []byte(`{"seeded":true}`), v)

	_, tierHit2, ok2 := tier.Get(ctx, "k2")
	require.True(t, ok2)
	assert.Equal(t, TierL1, tierHit2, "an L3 hit must also promote to L1")
}

func TestTierGetMissWhenAllTiersMiss(t *testing.T) {
	tier := NewTier(NewL1(1<<20), nil, nil, TTLPair{L1: time.Minute, L2: time.Minute})
	_, tierHit, ok := tier.Get(context.Background(), "missing")
	assert.False(t, ok)
	assert.Equal(t, TierMiss, tierHit)
}

// An unreachable L2 must be treated as a miss rather than surfacing an error,
// and the unavailable count must be incremented.
func TestTierL2UnreachableDegradesToMiss(t *testing.T) {
	l1 := NewL1(1 << 20)
	badL2 := &L2{
		client:    redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		namespace: "test",
		logger:    logging.NoOpLogger{},
	}
	l3, _ := LoadL3("")
	tier := NewTier(l1, badL2, l3, TTLPair{L1: time.Minute, L2: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, tierHit, ok := tier.Get(ctx, "whatever")
	assert.False(t, ok)
	assert.Equal(t, TierMiss, tierHit)
	assert.Greater(t, badL2.UnavailableCount(), int64(0))
}

// Cache idempotence: get(k); put(k,v); get(k) returns v byte-equal.
func TestTierPutThenGetIsIdempotent(t *testing.T) {
	tier := NewTier(NewL1(1<<20), nil, nil, TTLPair{L1: time.Minute, L2: time.Minute})
	ctx := context.Background()

	_, _, ok := tier.Get(ctx, "k3")
	assert.False(t, ok)

	tier.Put(ctx, "k3", []byte(`{"v":1}`), ClassNatal)

	v, _, ok := tier.Get(ctx, "k3")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"v":1}`), v)
}
