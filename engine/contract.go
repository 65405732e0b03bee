package engine

import "context"

// Engine is the polymorphic contract every computation engine implements.
// Both in-process engines and the out-of-process
// remoteengine.Proxy satisfy this single interface; the orchestrator never
// type-switches, reflects on, or down-casts an Engine to tell them apart.
type Engine interface {
	// Descriptor is pure and constant for a given process.
	Descriptor() EngineDescriptor

	// CacheKey is pure and deterministic over normalized input. The same
	// logical input MUST produce a byte-identical key across processes and
	// restarts.
	CacheKey(input EngineInput) CacheKey

	// Calculate may block on I/O (it takes a context for cancellation) and
	// must be safe for concurrent invocation from multiple goroutines. It
	// must return a non-empty InquiryString containing '?' on success.
	Calculate(ctx context.Context, input EngineInput) (EngineOutput, error)

	// Validate checks the structural invariants the engine itself promises.
	// It is pure. The orchestrator does not call it, so it never runs on the
	// request path.
	Validate(output EngineOutput) ValidationReport
}
