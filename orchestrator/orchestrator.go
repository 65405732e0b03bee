package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/cache"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
	"github.com/Sheshiyer/Selemene-engine-sub002/metrics"
	"github.com/Sheshiyer/Selemene-engine-sub002/registry"
	"github.com/Sheshiyer/Selemene-engine-sub002/synthesis"
	"github.com/Sheshiyer/Selemene-engine-sub002/workflow"
)

// Orchestrator implements single-engine execution, workflow fan-out,
// capability gating, cancellation propagation and deterministic response
// ordering.
type Orchestrator struct {
	registry    *registry.Registry
	cacheTier   *cache.Tier
	workflows   *workflow.Table
	synthesizer synthesis.Synthesizer
	sink        metrics.Sink
	logger      logging.Logger
	sf          *singleflightGroup

	workflowCacheEnabled bool // Open Question #1: disabled by default
}

// New builds an Orchestrator. The registry must already be sealed.
func New(reg *registry.Registry, cacheTier *cache.Tier, workflows *workflow.Table, synth synthesis.Synthesizer, sink metrics.Sink, logger logging.Logger, workflowCacheEnabled bool) *Orchestrator {
	return &Orchestrator{
		registry:             reg,
		cacheTier:            cacheTier,
		workflows:            workflows,
		synthesizer:          synth,
		sink:                 sink,
		logger:               logger.WithComponent("orchestrator"),
		sf:                   newSingleflightGroup(),
		workflowCacheEnabled: workflowCacheEnabled,
	}
}

// ExecuteEngine implements step 1: single-engine execution with
// capability gating and per-engine caching.
func (o *Orchestrator) ExecuteEngine(ctx context.Context, id engine.EngineId, input engine.EngineInput, auth AuthContext) (engine.EngineOutput, error) {
	e, ok := o.registry.Get(id)
	if !ok {
		return engine.EngineOutput{}, apierr.New(apierr.KindUnknownEngine, "orchestrator.ExecuteEngine",
			fmt.Sprintf("unknown engine %q", id))
	}

	desc := e.Descriptor()
	if auth.CapabilityLevel < desc.RequiredLevel {
		return engine.EngineOutput{}, apierr.New(apierr.KindCapabilityDenied, "orchestrator.ExecuteEngine",
			"caller capability level is below the engine's required level").
			WithDetails(map[string]interface{}{
				"required": int(desc.RequiredLevel),
				"provided": int(auth.CapabilityLevel),
			})
	}

	return o.executeWithCache(ctx, e, input)
}

// executeWithCache runs the cache-then-compute path shared by single-engine
// execution and every engine inside a workflow's fan-out: each engine's
// execution reuses the single-engine path, including its cache lookup.
func (o *Orchestrator) executeWithCache(ctx context.Context, e engine.Engine, input engine.EngineInput) (engine.EngineOutput, error) {
	desc := e.Descriptor()
	key := e.CacheKey(input)
	keyStr := key.String()

	start := time.Now()

	if raw, tier, hit := o.cacheTier.Get(ctx, keyStr); hit {
		var out engine.EngineOutput
		if err := json.Unmarshal(raw, &out); err == nil {
			out.Metadata.CacheHit = true
			o.sink.IncCounter(ctx, "engine_calls_total", map[string]string{"engine_id": string(desc.ID), "outcome": "success", "cache_tier": string(tier)})
			return out, nil
		}
		// A corrupt cache entry is treated as a miss rather than a hard
		// failure; fall through to compute.
		o.logger.WarnWithContext(ctx, "cache entry failed to decode, recomputing", map[string]interface{}{"engine_id": desc.ID})
	}

	// Calculate runs in its own goroutine so a caller whose request-timeout
	// deadline fires can return RequestTimeout immediately even if the
	// engine itself is pure CPU-bound and cannot be preempted (§5): the
	// compute keeps running in the background, and its cache store (on
	// success) still lands, using a detached context so the already-expired
	// deadline doesn't also fail the L2 write.
	type sfResult struct {
		val interface{}
		err error
	}
	done := make(chan sfResult, 1)
	go func() {
		v, err := o.sf.Do(keyStr, func() (interface{}, error) {
			return e.Calculate(ctx, input)
		})
		if err == nil {
			out := v.(engine.EngineOutput)
			out.Metadata.Timestamp = time.Now()
			out.Metadata.Duration = time.Since(start)
			out.Metadata.CacheHit = false
			if serialized, mErr := json.Marshal(out); mErr == nil {
				o.cacheTier.Put(context.Background(), keyStr, serialized, cache.Class(desc.TTLClass))
			}
		}
		done <- sfResult{val: v, err: err}
	}()

	var result sfResult
	select {
	case <-ctx.Done():
		o.sink.IncCounter(ctx, "engine_calls_total", map[string]string{"engine_id": string(desc.ID), "outcome": "timeout"})
		return engine.EngineOutput{}, apierr.Wrap(apierr.KindRequestTimeout, "orchestrator.executeWithCache", ctx.Err())
	case result = <-done:
	}

	duration := time.Since(start)
	o.sink.ObserveHistogram(ctx, "engine_call_duration_seconds", duration.Seconds(), map[string]string{"engine_id": string(desc.ID)})

	if result.err != nil {
		o.sink.IncCounter(ctx, "engine_calls_total", map[string]string{"engine_id": string(desc.ID), "outcome": "failure"})
		if _, ok := apierr.As(result.err); ok {
			return engine.EngineOutput{}, result.err
		}
		return engine.EngineOutput{}, apierr.Wrap(apierr.KindCalculation, "orchestrator.executeWithCache", result.err)
	}

	out := result.val.(engine.EngineOutput)
	out.Metadata.Timestamp = time.Now()
	out.Metadata.Duration = duration
	out.Metadata.CacheHit = false

	o.sink.IncCounter(ctx, "engine_calls_total", map[string]string{"engine_id": string(desc.ID), "outcome": "success"})
	return out, nil
}

// ExecuteWorkflow implements step 2: workflow resolution, capability
// filtering into skipped_engines, concurrent fan-out reusing the
// single-engine path, synthesis and ordering.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, id string, input engine.EngineInput, auth AuthContext) (workflow.Result, error) {
	def, ok := o.workflows.Get(id)
	if !ok {
		return workflow.Result{}, apierr.New(apierr.KindUnknownWorkflow, "orchestrator.ExecuteWorkflow",
			fmt.Sprintf("unknown workflow %q", id))
	}

	start := time.Now()

	var workflowKey string
	if o.workflowCacheEnabled {
		workflowKey = o.workflowCacheKey(def, input)
		if raw, tier, hit := o.cacheTier.Get(ctx, workflowKey); hit {
			var cached workflow.Result
			if err := json.Unmarshal(raw, &cached); err == nil {
				o.sink.IncCounter(ctx, "workflow_calls_total", map[string]string{"workflow_id": id, "outcome": "success", "cache_tier": string(tier)})
				return cached, nil
			}
			o.logger.WarnWithContext(ctx, "workflow cache entry failed to decode, recomputing", map[string]interface{}{"workflow_id": id})
		}
	}

	var permitted []engine.EngineId
	var skipped []engine.EngineId
	for _, engID := range def.EngineIDs {
		e, ok := o.registry.Get(engID)
		if !ok {
			skipped = append(skipped, engID)
			continue
		}
		if auth.CapabilityLevel < e.Descriptor().RequiredLevel {
			skipped = append(skipped, engID)
			continue
		}
		permitted = append(permitted, engID)
	}

	type stepResult struct {
		id  engine.EngineId
		out engine.EngineOutput
		err error
	}

	results := make([]stepResult, len(permitted))
	var wg sync.WaitGroup
	for i, engID := range permitted {
		wg.Add(1)
		go func(i int, engID engine.EngineId) {
			defer wg.Done()
			e, _ := o.registry.Get(engID)
			out, err := o.executeWithCache(ctx, e, input)
			results[i] = stepResult{id: engID, out: out, err: err}
		}(i, engID)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return workflow.Result{}, apierr.New(apierr.KindRequestTimeout, "orchestrator.ExecuteWorkflow", "request cancelled before workflow completed")
	}

	outputs := make(map[engine.EngineId]engine.EngineOutput)
	failed := make(map[engine.EngineId]workflow.EngineError)
	for _, r := range results {
		if r.err != nil {
			code := string(apierr.KindInternal)
			if e, ok := apierr.As(r.err); ok {
				code = string(e.Kind)
			}
			failed[r.id] = workflow.EngineError{ErrorCode: code, Message: r.err.Error()}
			continue
		}
		outputs[r.id] = r.out
	}

	if def.Policy == workflow.PolicyAllOrNone && len(failed) > 0 {
		// Surface the first failed engine's error (sorted for determinism)
		// as the workflow-level failure, per all_or_none policy.
		ids := make([]string, 0, len(failed))
		for id := range failed {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		first := failed[engine.EngineId(ids[0])]
		return workflow.Result{}, apierr.New(apierr.Kind(first.ErrorCode), "orchestrator.ExecuteWorkflow", first.Message)
	}

	synthResult, synthErr := o.synthesizer.Synthesize(outputs, def.Strategy)
	if synthErr != nil {
		return workflow.Result{}, apierr.Wrap(apierr.KindInternal, "orchestrator.ExecuteWorkflow", synthErr)
	}
	if len(outputs) == 0 {
		synthResult.InsufficientData = true
	}

	sort.Slice(skipped, func(i, j int) bool { return skipped[i] < skipped[j] })

	res := workflow.Result{
		WorkflowID:     id,
		EngineOutputs:  outputs,
		FailedEngines:  failed,
		SkippedEngines: skipped,
		Synthesis:      synthResult,
		Duration:       time.Since(start),
		Timestamp:      time.Now(),
	}

	if o.workflowCacheEnabled && workflowKey != "" {
		if serialized, mErr := json.Marshal(res); mErr == nil {
			o.cacheTier.Put(ctx, workflowKey, serialized, cache.Class(def.TTLClass))
		}
	}

	o.sink.IncCounter(ctx, "workflow_calls_total", map[string]string{"workflow_id": id, "outcome": "success"})
	return res, nil
}

// workflowCacheKey derives the workflow-level cache key: workflow id,
// normalized input and every contained engine's version tag, so bumping any
// engine's version invalidates the workflow cache lazily without a sweep.
func (o *Orchestrator) workflowCacheKey(def workflow.Definition, input engine.EngineInput) string {
	versions := make([]string, 0, len(def.EngineIDs))
	for _, id := range def.EngineIDs {
		tag := "unknown"
		if e, ok := o.registry.Get(id); ok {
			tag = e.Descriptor().VersionTag
		}
		versions = append(versions, string(id)+"@"+tag)
	}
	sort.Strings(versions)

	h := sha256.New()
	h.Write([]byte(def.ID))
	h.Write([]byte{0})
	h.Write(engine.CanonicalizeInput(input))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(versions, ",")))
	return "workflow:" + hex.EncodeToString(h.Sum(nil))
}
