package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

// abc is the common shape backing the A/B/C trio used by end-to-end scenario 3's
// workflow partial-failure test: three engines sharing one small workflow,
// with B wired to always fail so the best_effort/all_or_none policies have
// something concrete to diverge on.
type abc struct {
	id    engine.EngineId
	fail  bool
	theme string
}

var (
	EngineA = abc{id: "a", theme: "leadership"}
	EngineB = abc{id: "b", fail: true, theme: "stillness"}
	EngineC = abc{id: "c", theme: "expansion"}
)

func (e abc) Descriptor() engine.EngineDescriptor {
	return engine.EngineDescriptor{
		ID:            e.id,
		Name:          string(e.id),
		RequiredLevel: 0,
		Remote:        false,
		VersionTag:    "v1",
		TTLClass:      "mixed",
	}
}

func (e abc) CacheKey(input engine.EngineInput) engine.CacheKey {
	return engine.DeriveCacheKey(e.Descriptor().ID, input, e.Descriptor().VersionTag)
}

func (e abc) Calculate(ctx context.Context, input engine.EngineInput) (engine.EngineOutput, error) {
	if e.fail {
		return engine.EngineOutput{}, apierr.New(apierr.KindCalculation, "engines.abc.Calculate",
			fmt.Sprintf("engine %q could not complete its calculation", e.id))
	}

	result, _ := json.Marshal(map[string]string{"theme": e.theme})
	return engine.EngineOutput{
		EngineID:        e.Descriptor().ID,
		Result:          result,
		InquiryString:   fmt.Sprintf("What %s calls to you now?", e.theme),
		CapabilityLevel: e.Descriptor().RequiredLevel,
	}, nil
}

func (e abc) Validate(output engine.EngineOutput) engine.ValidationReport {
	if output.InquiryString == "" {
		return engine.ValidationReport{Valid: false, Errors: []string{"inquiry string is empty"}}
	}
	if !strings.Contains(output.InquiryString, "?") {
		return engine.ValidationReport{Valid: false, Errors: []string{"inquiry string does not contain '?'"}}
	}
	return engine.ValidationReport{Valid: true}
}
