// Package orchestrator implements single-engine execution, workflow
// execution, capability gating, and fan-out with partial-failure handling.
// Grounded structurally on orchestration.Orchestrator /
// orchestration.Executor, trimmed of gomind's LLM-routing/HITL surface,
// which has no analogue here.
package orchestrator

import "github.com/Sheshiyer/Selemene-engine-sub002/engine"

// AuthContext is produced by the authenticator collaborator and attached to
// every orchestrator invocation.
type AuthContext struct {
	CallerID        string
	CapabilityLevel engine.CapabilityLevel
}
