// Package engines provides the minimal in-process engines this repository
// ships with. Real astrological/archetypal math is an explicit non-goal, so
// these are intentionally trivial black-box implementations of the engine
// contract, matching the exact fixtures named in the end-to-end scenarios.
package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

// Sum is the trivial "sum" engine from end-to-end scenario 1: required_level=0,
// returns {"sum": a+b} for options {a, b}.
type Sum struct{}

func (Sum) Descriptor() engine.EngineDescriptor {
	return engine.EngineDescriptor{
		ID:            "sum",
		Name:          "Sum",
		RequiredLevel: 0,
		Remote:        false,
		VersionTag:    "v1",
		TTLClass:      "mixed",
	}
}

func (s Sum) CacheKey(input engine.EngineInput) engine.CacheKey {
	return engine.DeriveCacheKey(s.Descriptor().ID, input, s.Descriptor().VersionTag)
}

func (s Sum) Calculate(ctx context.Context, input engine.EngineInput) (engine.EngineOutput, error) {
	a, aok := numberOption(input.Options, "a")
	b, bok := numberOption(input.Options, "b")
	if !aok || !bok {
		return engine.EngineOutput{}, apierr.New(apierr.KindValidation, "engines.Sum.Calculate", "options.a and options.b are required numbers")
	}

	total := a + b
	result, err := json.Marshal(map[string]float64{"sum": total})
	if err != nil {
		return engine.EngineOutput{}, apierr.Wrap(apierr.KindInternal, "engines.Sum.Calculate", err)
	}

	return engine.EngineOutput{
		EngineID:        s.Descriptor().ID,
		Result:          result,
		InquiryString:   fmt.Sprintf("What is the weight of %s?", numberWord(total)),
		CapabilityLevel: s.Descriptor().RequiredLevel,
	}, nil
}

func (s Sum) Validate(output engine.EngineOutput) engine.ValidationReport {
	var errs []string
	var decoded map[string]float64
	if err := json.Unmarshal(output.Result, &decoded); err != nil {
		errs = append(errs, "result is not a {sum: number} object")
	} else if _, ok := decoded["sum"]; !ok {
		errs = append(errs, "result missing key 'sum'")
	}
	if output.InquiryString == "" {
		errs = append(errs, "inquiry string is empty")
	} else if !strings.Contains(output.InquiryString, "?") {
		errs = append(errs, "inquiry string does not contain '?'")
	}
	return engine.ValidationReport{Valid: len(errs) == 0, Errors: errs}
}

func numberOption(opts map[string]interface{}, key string) (float64, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// numberWord renders a small integer total as an English word to match the
// exact witness prompt in end-to-end scenario 1 ("What is the weight of five?" for
// sum==5); any other total falls back to its numeric form.
func numberWord(n float64) string {
	words := map[float64]string{
		0: "zero", 1: "one", 2: "two", 3: "three", 4: "four",
		5: "five", 6: "six", 7: "seven", 8: "eight", 9: "nine", 10: "ten",
	}
	if w, ok := words[n]; ok {
		return w
	}
	return fmt.Sprintf("%g", n)
}
