// Package registry implements the sealed, immutable engine registry of
// this design. Unlike gomind's core.RedisDiscovery and
// orchestration.AgentCatalog, which stay mutable for the process lifetime to
// support live re-registration, this registry is built once at startup and
// sealed: per this module's explicit non-goal ("no dynamic hot-reload of engines
// at runtime"), there is no refresh loop and no mutex on the read path.
package registry

import (
	"fmt"
	"sort"

	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
)

// Registry is an immutable-after-seal map from engine id to engine instance.
type Registry struct {
	engines map[engine.EngineId]engine.Engine
	sealed  bool
}

// New constructs an empty, unsealed Registry.
func New() *Registry {
	return &Registry{engines: make(map[engine.EngineId]engine.Engine)}
}

// Register adds e to the registry. It panics if called after Seal: per
// this design, any later mutation is a programming error, not a
// recoverable runtime condition.
func (r *Registry) Register(e engine.Engine) {
	if r.sealed {
		panic(fmt.Sprintf("registry: Register(%s) called after Seal", e.Descriptor().ID))
	}
	id := e.Descriptor().ID
	if _, exists := r.engines[id]; exists {
		panic(fmt.Sprintf("registry: duplicate engine id %q", id))
	}
	r.engines[id] = e
}

// Seal freezes the registry. After Seal, Get/List/Contains require no
// coordination: the underlying map is never again mutated.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal has been called, used by the /health endpoint.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Get returns the engine for id, or (nil, false) if absent.
func (r *Registry) Get(id engine.EngineId) (engine.Engine, bool) {
	e, ok := r.engines[id]
	return e, ok
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id engine.EngineId) bool {
	_, ok := r.engines[id]
	return ok
}

// List returns every engine's descriptor, sorted by engine id for
// deterministic responses from GET /engines.
func (r *Registry) List() []engine.EngineDescriptor {
	out := make([]engine.EngineDescriptor, 0, len(r.engines))
	for _, e := range r.engines {
		out = append(out, e.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
