package engines

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

// Slow is the end-to-end scenario 6 fixture: it deliberately blocks for longer than
// any reasonable request timeout, and returns early when its context is
// cancelled.
type Slow struct {
	Delay time.Duration // defaults to 5s if zero
}

func (Slow) Descriptor() engine.EngineDescriptor {
	return engine.EngineDescriptor{
		ID:            "slow",
		Name:          "Slow",
		RequiredLevel: 0,
		Remote:        false,
		VersionTag:    "v1",
		TTLClass:      "custom",
	}
}

func (s Slow) CacheKey(input engine.EngineInput) engine.CacheKey {
	return engine.DeriveCacheKey(s.Descriptor().ID, input, s.Descriptor().VersionTag)
}

func (s Slow) Calculate(ctx context.Context, input engine.EngineInput) (engine.EngineOutput, error) {
	delay := s.Delay
	if delay == 0 {
		delay = 5 * time.Second
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return engine.EngineOutput{}, apierr.Wrap(apierr.KindRequestTimeout, "engines.Slow.Calculate", ctx.Err())
	case <-timer.C:
	}

	result, _ := json.Marshal(map[string]string{"status": "eventually"})
	return engine.EngineOutput{
		EngineID:        s.Descriptor().ID,
		Result:          result,
		InquiryString:   "What takes its time?",
		CapabilityLevel: s.Descriptor().RequiredLevel,
	}, nil
}

func (s Slow) Validate(output engine.EngineOutput) engine.ValidationReport {
	if output.InquiryString == "" {
		return engine.ValidationReport{Valid: false, Errors: []string{"inquiry string is empty"}}
	}
	if !strings.Contains(output.InquiryString, "?") {
		return engine.ValidationReport{Valid: false, Errors: []string{"inquiry string does not contain '?'"}}
	}
	return engine.ValidationReport{Valid: true}
}
