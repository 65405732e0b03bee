// Package synthesis implements the pure, deterministic reduction of an
// engine-output map into a workflow-level SynthesisResult. It is
// structurally grounded on orchestration.AISynthesizer's
// interface/strategy-dispatch shape, but the algorithm itself is a full
// rewrite: no AI client is involved, and the result must be byte-identical
// for byte-identical inputs regardless of map iteration order.
package synthesis

import "github.com/Sheshiyer/Selemene-engine-sub002/engine"

// Strategy selects a per-workflow synthesis specialization.
type Strategy string

const (
	StrategyThemeDetection Strategy = "theme-detection" // default for all built-in workflows
	StrategyBirthBlueprint Strategy = "birth-blueprint"
	StrategyDailyPractice  Strategy = "daily-practice"
)

// Theme is one detected term with its occurrence count and attributing
// engines.
type Theme struct {
	Label      string   `json:"label"`
	Count      int      `json:"count"`
	SourceIDs  []string `json:"source_engine_ids"`
	Narrative  string   `json:"narrative,omitempty"`
}

// Alignment reports two primary terms that share a common source engine.
type Alignment struct {
	TermA string `json:"term_a"`
	TermB string `json:"term_b"`
	EngineID string `json:"engine_id"`
}

// Tension reports two primary terms with disjoint source sets that
// normalize to semantically opposing canonical terms.
type Tension struct {
	TermA string `json:"term_a"`
	TermB string `json:"term_b"`
}

// Result is SynthesisResult.
type Result struct {
	PrimaryThemes   []Theme     `json:"primary_themes"`
	SecondaryThemes []Theme     `json:"secondary_themes"`
	Alignments      []Alignment `json:"alignments"`
	Tensions        []Tension   `json:"tensions"`
	Narrative       string      `json:"narrative"`
	UnifiedInquiry  string      `json:"unified_inquiry"`
	InsufficientData bool       `json:"insufficient_data,omitempty"`
}

// Synthesizer is the pure-function contract, matching
// orchestration.Synthesizer's Synthesize/SetStrategy shape.
type Synthesizer interface {
	Synthesize(outputs map[engine.EngineId]engine.EngineOutput, strategy Strategy) (Result, error)
}
