package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCacheKeyDeterministic(t *testing.T) {
	qt := time.Date(2024, 3, 21, 12, 0, 0, 0, time.UTC)
	input := EngineInput{
		QueryTime: &qt,
		Location:  &GeoPoint{Latitude: 12.345678, Longitude: -98.765432},
		Precision: PrecisionHigh,
		Options:   map[string]interface{}{"b": 2, "a": 1},
	}

	k1 := DeriveCacheKey("sum", input, "v1")
	k2 := DeriveCacheKey("sum", input, "v1")
	assert.Equal(t, k1, k2, "identical input must always hash to the same key")
	assert.Equal(t, k1.String(), k2.String())
}

func TestDeriveCacheKeyOptionOrderIndependent(t *testing.T) {
	a := EngineInput{Options: map[string]interface{}{"a": 1, "b": 2}}
	b := EngineInput{Options: map[string]interface{}{"b": 2, "a": 1}}
	assert.Equal(t, DeriveCacheKey("sum", a, "v1"), DeriveCacheKey("sum", b, "v1"),
		"map iteration order must not affect the derived key")
}

func TestDeriveCacheKeyVariesWithEngineIDPrecisionAndVersion(t *testing.T) {
	base := EngineInput{Options: map[string]interface{}{"a": 1}}

	k := DeriveCacheKey("sum", base, "v1")
	assert.NotEqual(t, k, DeriveCacheKey("deep", base, "v1"), "different engine id must change the key")

	highPrecision := base
	highPrecision.Precision = PrecisionHigh
	assert.NotEqual(t, k, DeriveCacheKey("sum", highPrecision, "v1"), "different precision must change the key")

	assert.NotEqual(t, k, DeriveCacheKey("sum", base, "v2"), "different version tag must change the key")
}

func TestDeriveCacheKeyCoordinateRounding(t *testing.T) {
	a := EngineInput{Location: &GeoPoint{Latitude: 12.34561, Longitude: 0}}
	b := EngineInput{Location: &GeoPoint{Latitude: 12.34567, Longitude: 0}}
	assert.NotEqual(t, DeriveCacheKey("sum", a, "v1"), DeriveCacheKey("sum", b, "v1"),
		"coordinates that round to different 4-decimal values must produce different keys")

	c := EngineInput{Location: &GeoPoint{Latitude: 12.34561, Longitude: 0}}
	d := EngineInput{Location: &GeoPoint{Latitude: 12.34564, Longitude: 0}}
	assert.Equal(t, DeriveCacheKey("sum", c, "v1"), DeriveCacheKey("sum", d, "v1"),
		"coordinates rounding to the same 4-decimal value must produce the same key")
}

func TestNormalizedPrecisionDefaultsToStandard(t *testing.T) {
	assert.Equal(t, PrecisionStandard, EngineInput{}.NormalizedPrecision())
	assert.Equal(t, PrecisionExtreme, EngineInput{Precision: PrecisionExtreme}.NormalizedPrecision())
}
