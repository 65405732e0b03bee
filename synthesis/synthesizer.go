package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

const narrativeCap = 5 // K=5

// strategyFields maps a non-default Strategy to the category fields it
// pre-filters to for per-workflow specialization. StrategyThemeDetection
// (the default) uses every recognized field.
var strategyFields = map[Strategy][]string{
	StrategyBirthBlueprint: mergeFields("identity", "shadow", "gift"),
	StrategyDailyPractice:  mergeFields("timing", "direction"),
}

func mergeFields(categories ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range categories {
		for _, f := range categoryFields[c] {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

// termInfo accumulates the source engines attributing a given canonical
// term, in the deterministic order the term's sources were visited.
type termInfo struct {
	term    string
	sources []engine.EngineId
}

// ThemeDetector implements Synthesizer with a pure, deterministic
// theme-detection algorithm.
type ThemeDetector struct{}

// NewThemeDetector builds the default synthesizer.
func NewThemeDetector() *ThemeDetector {
	return &ThemeDetector{}
}

// Synthesize implements Synthesizer. Iteration over outputs is always in
// engine-id-sorted order so the result is byte-identical regardless of how
// the caller's map was populated.
func (s *ThemeDetector) Synthesize(outputs map[engine.EngineId]engine.EngineOutput, strategy Strategy) (Result, error) {
	if len(outputs) == 0 {
		return Result{InsufficientData: true, Narrative: "insufficient data: no successful engine outputs"}, nil
	}

	ids := make([]engine.EngineId, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fields := strategyFields[strategy] // nil for StrategyThemeDetection -> all recognized fields

	termOrder := []string{}
	terms := make(map[string]*termInfo)
	for _, id := range ids {
		out := outputs[id]
		for _, term := range extractTerms(out.Result, fields) {
			info, ok := terms[term]
			if !ok {
				info = &termInfo{term: term}
				terms[term] = info
				termOrder = append(termOrder, term)
			}
			info.sources = append(info.sources, id)
		}
	}

	var primary, secondary []Theme
	for _, term := range termOrder { // termOrder preserves engine-id-sorted discovery order
		info := terms[term]
		count := len(info.sources)
		theme := Theme{
			Label:     term,
			Count:     count,
			SourceIDs: engineIDStrings(info.sources),
		}
		switch {
		case count >= 3:
			theme.Narrative = fmt.Sprintf("%q appears across %s", term, strings.Join(theme.SourceIDs, ", "))
			primary = append(primary, theme)
		case count == 2:
			secondary = append(secondary, theme)
		}
		// count == 1: singleton, discarded.
	}

	alignments := detectAlignments(primary, terms)
	tensions := detectTensions(primary)

	narrative := buildNarrative(primary)
	inquiry := buildUnifiedInquiry(primary)

	return Result{
		PrimaryThemes:   primary,
		SecondaryThemes: secondary,
		Alignments:      alignments,
		Tensions:        tensions,
		Narrative:       narrative,
		UnifiedInquiry:  inquiry,
	}, nil
}

func engineIDStrings(ids []engine.EngineId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// detectAlignments reports any pair of primary terms that both originate
// from a common engine. Pairs are emitted in the order the terms appear in
// primary (each term paired with every later one).
func detectAlignments(primary []Theme, terms map[string]*termInfo) []Alignment {
	var out []Alignment
	for i := 0; i < len(primary); i++ {
		for j := i + 1; j < len(primary); j++ {
			a, b := primary[i], primary[j]
			common := commonSource(terms[a.Label].sources, terms[b.Label].sources)
			if common != "" {
				out = append(out, Alignment{TermA: a.Label, TermB: b.Label, EngineID: common})
			}
		}
	}
	return out
}

func commonSource(a, b []engine.EngineId) string {
	set := make(map[engine.EngineId]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	var found []engine.EngineId
	for _, id := range b {
		if set[id] {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return string(found[0])
}

// detectTensions reports any pair of primary terms with disjoint source sets
// that normalize to opposing canonical terms per the fixed opposition table.
func detectTensions(primary []Theme) []Tension {
	var out []Tension
	for i := 0; i < len(primary); i++ {
		for j := i + 1; j < len(primary); j++ {
			a, b := primary[i], primary[j]
			if !Opposes(a.Label, b.Label) {
				continue
			}
			if disjoint(a.SourceIDs, b.SourceIDs) {
				out = append(out, Tension{TermA: a.Label, TermB: b.Label})
			}
		}
	}
	return out
}

func disjoint(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if set[id] {
			return false
		}
	}
	return true
}

// buildNarrative concatenates up to narrativeCap primary-term sentences.
func buildNarrative(primary []Theme) string {
	if len(primary) == 0 {
		return ""
	}
	n := len(primary)
	if n > narrativeCap {
		n = narrativeCap
	}
	sentences := make([]string, n)
	for i := 0; i < n; i++ {
		sentences[i] = primary[i].Narrative
	}
	return strings.Join(sentences, " ")
}

// buildUnifiedInquiry generates the composite inquiry when at least two
// primary themes exist; otherwise it falls back to a single-theme phrasing,
// or an empty string when there are none.
func buildUnifiedInquiry(primary []Theme) string {
	switch {
	case len(primary) >= 2:
		t1, t2 := primary[0], primary[1]
		return fmt.Sprintf(
			"With %q appearing in %d engines and %q appearing in %d, how do these patterns interact in your experience?",
			t1.Label, t1.Count, t2.Label, t2.Count,
		)
	case len(primary) == 1:
		t := primary[0]
		return fmt.Sprintf("With %q appearing in %d engines, how does this pattern show up in your experience?", t.Label, t.Count)
	default:
		return ""
	}
}
