package synthesis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

func output(t *testing.T, id engine.EngineId, fields map[string]string) (engine.EngineId, engine.EngineOutput) {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return id, engine.EngineOutput{EngineID: id, Result: raw}
}

func buildOutputs(t *testing.T) map[engine.EngineId]engine.EngineOutput {
	outputs := make(map[engine.EngineId]engine.EngineOutput)
	for _, pair := range []struct {
		id     engine.EngineId
		fields map[string]string
	}{
		{"a", map[string]string{"type": "leader"}},
		{"b", map[string]string{"archetype": "leading"}},
		{"c", map[string]string{"theme": "leads"}},
		{"d", map[string]string{"quality": "still"}},
		{"e", map[string]string{"mode": "stillness"}},
	} {
		id, out := output(t, pair.id, pair.fields)
		outputs[id] = out
	}
	return outputs
}

func TestSynthesizeDeterministicRegardlessOfMapOrder(t *testing.T) {
	det := NewThemeDetector()
	outputs := buildOutputs(t)

	r1, err := det.Synthesize(outputs, StrategyThemeDetection)
	require.NoError(t, err)

	// Rebuild the same map via a different insertion order; Go map
	// iteration order is randomized per-process, so this exercises the
	// same nondeterminism Synthesize must be immune to.
	reordered := make(map[engine.EngineId]engine.EngineOutput)
	for _, id := range []engine.EngineId{"e", "c", "a", "d", "b"} {
		reordered[id] = outputs[id]
	}
	r2, err := det.Synthesize(reordered, StrategyThemeDetection)
	require.NoError(t, err)

	assert.Equal(t, r1, r2, "synthesis must be byte-identical regardless of map population order")
}

func TestSynthesizePartitionsByOccurrenceCount(t *testing.T) {
	det := NewThemeDetector()
	outputs := buildOutputs(t)

	result, err := det.Synthesize(outputs, StrategyThemeDetection)
	require.NoError(t, err)

	require.Len(t, result.PrimaryThemes, 1)
	assert.Equal(t, "leadership", result.PrimaryThemes[0].Label)
	assert.Equal(t, 3, result.PrimaryThemes[0].Count)

	require.Len(t, result.SecondaryThemes, 1)
	assert.Equal(t, "stillness", result.SecondaryThemes[0].Label)
	assert.Equal(t, 2, result.SecondaryThemes[0].Count)
}

func TestSynthesizeDetectsTensionsAcrossDisjointSources(t *testing.T) {
	det := NewThemeDetector()
	outputs := make(map[engine.EngineId]engine.EngineOutput)
	for _, pair := range []struct {
		id     engine.EngineId
		fields map[string]string
	}{
		{"a", map[string]string{"type": "act"}},
		{"b", map[string]string{"archetype": "acting"}},
		{"c", map[string]string{"theme": "act"}},
		{"d", map[string]string{"quality": "still"}},
		{"e", map[string]string{"mode": "stillness"}},
		{"f", map[string]string{"gate": "still"}},
	} {
		id, out := output(t, pair.id, pair.fields)
		outputs[id] = out
	}

	result, err := det.Synthesize(outputs, StrategyThemeDetection)
	require.NoError(t, err)
	require.Len(t, result.PrimaryThemes, 2)
	require.Len(t, result.Tensions, 1)
	assert.ElementsMatch(t, []string{"action", "stillness"},
		[]string{result.Tensions[0].TermA, result.Tensions[0].TermB})
}

func TestSynthesizeEmptyOutputsReportsInsufficientData(t *testing.T) {
	det := NewThemeDetector()
	result, err := det.Synthesize(map[engine.EngineId]engine.EngineOutput{}, StrategyThemeDetection)
	require.NoError(t, err)
	assert.True(t, result.InsufficientData)
}
