// Package engine defines the engine contract and the data model shared by
// every engine implementation, the registry, the orchestrator and the cache
// tier.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// CapabilityLevel gates engine access. Both engines and callers carry one;
// a caller may use an engine when the caller's level is at least the
// engine's required level, so 0 is the narrowest caller level and 5 the
// broadest.
type CapabilityLevel int

const (
	MinCapabilityLevel CapabilityLevel = 0
	MaxCapabilityLevel CapabilityLevel = 5
)

// Precision is the precision tag carried on an EngineInput.
type Precision string

const (
	PrecisionStandard Precision = "Standard"
	PrecisionHigh     Precision = "High"
	PrecisionExtreme  Precision = "Extreme"
)

// BirthRecord is the optional birth-data block of an EngineInput.
type BirthRecord struct {
	Date      string  `json:"date"` // ISO-8601 date
	Time      string  `json:"time"` // ISO-8601 time
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimezoneID string `json:"timezone_id"`
}

// GeoPoint is a (latitude, longitude) pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EngineInput is the request payload every engine consumes.
type EngineInput struct {
	BirthRecord *BirthRecord           `json:"birth_record,omitempty"`
	QueryTime   *time.Time             `json:"query_time,omitempty"`
	Location    *GeoPoint              `json:"location,omitempty"`
	Precision   Precision              `json:"precision,omitempty"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

// NormalizedPrecision returns input's precision, defaulting to Standard.
func (in EngineInput) NormalizedPrecision() Precision {
	if in.Precision == "" {
		return PrecisionStandard
	}
	return in.Precision
}

// OutputMetadata is the metadata record attached to every EngineOutput.
type OutputMetadata struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration_ns"`
	CacheHit  bool          `json:"cache_hit"`
	Backend   string        `json:"backend"`
}

// EngineOutput is the result of a successful engine calculation.
//
// Invariant: InquiryString must never be empty and must contain at least one
// '?'. Callers that violate this (an engine author bug) fail validation; see
// ValidationReport.
type EngineOutput struct {
	EngineID        EngineId                `json:"engine_id"`
	Result          json.RawMessage         `json:"result"`
	InquiryString   string                  `json:"witness_prompt"`
	CapabilityLevel CapabilityLevel         `json:"capability_level"`
	Metadata        OutputMetadata          `json:"metadata"`
}

// EngineId is a short stable identifier, unique per engine.
type EngineId string

// EngineDescriptor is the static, constant-for-a-process description of an
// engine.
type EngineDescriptor struct {
	ID               EngineId `json:"id"`
	Name             string   `json:"name"`
	RequiredLevel    CapabilityLevel `json:"required_level"`
	Remote           bool     `json:"remote"`
	RequiresBirthData bool    `json:"requires_birth_data,omitempty"`
	VersionTag       string   `json:"version_tag"`
	// TTLClass selects the engine's cache TTL class ("natal", "temporal",
	// "archetypal", "mixed", "custom"). Declared as a
	// plain string here so this package does not depend on the cache
	// package's Class type; orchestrator converts it directly since the
	// string values are shared verbatim.
	TTLClass string `json:"ttl_class"`
}

// ValidationReport is the result of Engine.Validate.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// CacheKey is a 256-bit digest derived deterministically from an engine id,
// the normalized input, the precision tag and the engine's version tag.
type CacheKey [32]byte

// String renders the key as lowercase hex, the wire/log representation.
func (k CacheKey) String() string {
	return hex.EncodeToString(k[:])
}

// DeriveCacheKey implements the canonicalization and digest formula from
// this design:
//
//	SHA-256( engine_id || 0x00 || normalized_input_canonical_json || 0x00 || precision || 0x00 || version_tag )
//
// Normalization rules (this design): latitude/longitude formatted to
// four fractional digits, times normalized to UTC instants, option keys
// serialized in sorted order, unknown keys ignored by engines (not by the
// key derivation itself, which hashes whatever canonical options map it is
// given).
func DeriveCacheKey(engineID EngineId, input EngineInput, versionTag string) CacheKey {
	canon := CanonicalizeInput(input)
	h := sha256.New()
	h.Write([]byte(engineID))
	h.Write([]byte{0})
	h.Write(canon)
	h.Write([]byte{0})
	h.Write([]byte(input.NormalizedPrecision()))
	h.Write([]byte{0})
	h.Write([]byte(versionTag))
	var out CacheKey
	copy(out[:], h.Sum(nil))
	return out
}

// CanonicalizeInput produces a stable JSON encoding of input suitable for
// hashing: floats are rounded to four fractional digits, times are converted
// to UTC, and map keys are emitted in sorted order (Go's encoding/json
// already sorts map[string]interface{} keys, so only the floating-point and
// time normalization need explicit handling here).
func CanonicalizeInput(input EngineInput) []byte {
	type canonicalBirth struct {
		Date       string `json:"date"`
		Time       string `json:"time"`
		Latitude   string `json:"latitude"`
		Longitude  string `json:"longitude"`
		TimezoneID string `json:"timezone_id"`
	}
	type canonicalLocation struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	}
	type canonicalInput struct {
		BirthRecord *canonicalBirth    `json:"birth_record,omitempty"`
		QueryTime   string             `json:"query_time,omitempty"`
		Location    *canonicalLocation `json:"location,omitempty"`
		Options     map[string]interface{} `json:"options,omitempty"`
	}

	c := canonicalInput{Options: sortedOptions(input.Options)}
	if input.BirthRecord != nil {
		c.BirthRecord = &canonicalBirth{
			Date:       input.BirthRecord.Date,
			Time:       input.BirthRecord.Time,
			Latitude:   formatCoord(input.BirthRecord.Latitude),
			Longitude:  formatCoord(input.BirthRecord.Longitude),
			TimezoneID: input.BirthRecord.TimezoneID,
		}
	}
	if input.QueryTime != nil {
		c.QueryTime = input.QueryTime.UTC().Format(time.RFC3339Nano)
	}
	if input.Location != nil {
		c.Location = &canonicalLocation{
			Latitude:  formatCoord(input.Location.Latitude),
			Longitude: formatCoord(input.Location.Longitude),
		}
	}

	enc, err := json.Marshal(c)
	if err != nil {
		// json.Marshal over this concrete struct of primitives cannot fail;
		// a panic here means a programming error in CanonicalizeInput itself.
		panic(fmt.Sprintf("engine: canonicalize input: %v", err))
	}
	return enc
}

func formatCoord(f float64) string {
	return fmt.Sprintf("%.4f", f)
}

// sortedOptions returns a shallow copy of opts, or nil when opts is empty.
// Values are copied unchanged; the sorted key order of the encoding comes
// from encoding/json, which marshals map[string]interface{} keys sorted.
func sortedOptions(opts map[string]interface{}) map[string]interface{} {
	if len(opts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]interface{}, len(opts))
	for _, k := range keys {
		out[k] = opts[k]
	}
	return out
}
