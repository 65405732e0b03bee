// Package cache implements the three-tier cache: L1 in-process LRU, L2
// shared Redis, L3 read-only precomputed store.
package cache

import "time"

// Entry is a stored cache value: key, serialized output, creation/expiration
// instants and a byte-size used for L1 accounting.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	ExpiresAt *time.Time // nil means no expiry (used by L3 entries)
	Size      int64
}

// Expired reports whether e's TTL has lapsed as of now.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Class is the TTL class attached to an engine or workflow.
type Class string

const (
	ClassNatal      Class = "natal"
	ClassTemporal   Class = "temporal"
	ClassArchetypal Class = "archetypal"
	ClassMixed      Class = "mixed"
	ClassCustom     Class = "custom"
)

// TTLPair is the (L1 TTL, L2 TTL) duration pair for a Class.
type TTLPair struct {
	L1 time.Duration
	L2 time.Duration
}

// defaultTTLs implements the TTL classes table: how long an entry of each
// class stays in L1 versus L2.
var defaultTTLs = map[Class]TTLPair{
	ClassNatal:      {L1: time.Hour, L2: 24 * time.Hour},
	ClassTemporal:   {L1: time.Hour, L2: time.Hour},
	ClassArchetypal: {L1: 15 * time.Minute, L2: 15 * time.Minute},
	ClassMixed:      {L1: time.Hour, L2: time.Hour},
}

// TTLFor returns the TTL pair for class, falling back to fallback (the
// operator-configured CACHE_L1_TTL_SECS/CACHE_L2_TTL_SECS defaults) for
// ClassCustom or an unrecognized class.
func TTLFor(class Class, fallback TTLPair) TTLPair {
	if p, ok := defaultTTLs[class]; ok {
		return p
	}
	return fallback
}

// HitTier reports which layer served a Get, for metrics and the cache-hit
// metadata tag ("cache_hits_total{tier=...}").
type HitTier string

const (
	TierL1   HitTier = "L1"
	TierL2   HitTier = "L2"
	TierL3   HitTier = "L3"
	TierMiss HitTier = "miss"
)
