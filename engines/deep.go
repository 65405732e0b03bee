package engines

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

// Deep is the end-to-end scenario 2 fixture: required_level=2, used to exercise the
// capability-denied path (a caller with a lower level is rejected before the
// engine ever runs).
type Deep struct{}

func (Deep) Descriptor() engine.EngineDescriptor {
	return engine.EngineDescriptor{
		ID:            "deep",
		Name:          "Deep",
		RequiredLevel: 2,
		Remote:        false,
		VersionTag:    "v1",
		TTLClass:      "archetypal",
	}
}

func (d Deep) CacheKey(input engine.EngineInput) engine.CacheKey {
	return engine.DeriveCacheKey(d.Descriptor().ID, input, d.Descriptor().VersionTag)
}

func (d Deep) Calculate(ctx context.Context, input engine.EngineInput) (engine.EngineOutput, error) {
	result, _ := json.Marshal(map[string]string{"depth": "restricted"})
	return engine.EngineOutput{
		EngineID:        d.Descriptor().ID,
		Result:          result,
		InquiryString:   "What lies beneath the surface?",
		CapabilityLevel: d.Descriptor().RequiredLevel,
	}, nil
}

func (d Deep) Validate(output engine.EngineOutput) engine.ValidationReport {
	if output.InquiryString == "" {
		return engine.ValidationReport{Valid: false, Errors: []string{"inquiry string is empty"}}
	}
	if !strings.Contains(output.InquiryString, "?") {
		return engine.ValidationReport{Valid: false, Errors: []string{"inquiry string does not contain '?'"}}
	}
	return engine.ValidationReport{Valid: true}
}
