package synthesis

import (
	"encoding/json"
	"strings"
)

// recognizedFields are the per-engine JSON result fields term extraction
// looks at ("type", "gate", "archetype", and similar named fields).
// Unrecognized fields are ignored.
var recognizedFields = []string{"type", "gate", "archetype", "theme", "quality", "element", "mode"}

// categoryFields narrows extraction to a named category set, used by the
// per-workflow specializations (birth-blueprint, daily-practice) that
// pre-filter terms before partitioning.
var categoryFields = map[string][]string{
	"identity":  {"type", "archetype"},
	"timing":    {"mode", "quality"},
	"shadow":    {"gate", "theme"},
	"gift":      {"element", "theme"},
	"direction": {"mode", "element"},
}

// extractTerms pulls every recognized string-valued field out of a raw JSON
// result object, lowercases and stems each, and returns the deduplicated set
// for this single engine output. fields restricts extraction to a subset of
// recognizedFields (nil means "all").
func extractTerms(result json.RawMessage, fields []string) []string {
	if len(result) == 0 {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(result, &obj); err != nil {
		return nil
	}

	allowed := recognizedFields
	if fields != nil {
		allowed = fields
	}

	seen := make(map[string]bool)
	var terms []string
	for _, field := range allowed {
		v, ok := obj[field]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		term := Stem(strings.ToLower(strings.TrimSpace(s)))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}
