package workflow

import (
	"time"

	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/synthesis"
)

// EngineError is the per-engine failure record embedded in a Result's
// FailedEngines map.
type EngineError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Result is WorkflowResult.
type Result struct {
	WorkflowID     string                                  `json:"workflow_id"`
	EngineOutputs  map[engine.EngineId]engine.EngineOutput  `json:"engine_outputs"`
	FailedEngines  map[engine.EngineId]EngineError          `json:"failed_engines"`
	SkippedEngines []engine.EngineId                        `json:"skipped_engines"`
	Synthesis      synthesis.Result                         `json:"synthesis"`
	Duration       time.Duration                            `json:"duration_ns"`
	Timestamp      time.Time                                `json:"timestamp"`
}
