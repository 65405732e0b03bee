package httpapi

import (
	"net/http"
	"strings"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/orchestrator"
)

// Authenticator resolves a request into an AuthContext. StaticAuthenticator
// is the only implementation: API keys and their capability levels are fixed
// at startup from config.Config.APIKeys, matching registry/workflow.Table's
// no-hot-reload posture.
type Authenticator interface {
	Authenticate(r *http.Request) (orchestrator.AuthContext, error)
}

// StaticAuthenticator authenticates against a fixed API-key -> capability
// level table, read from the "Authorization: Bearer <key>" header.
type StaticAuthenticator struct {
	keys map[string]engine.CapabilityLevel
}

// NewStaticAuthenticator builds an Authenticator from a key->level map. An
// empty map means every request is rejected (no anonymous default).
func NewStaticAuthenticator(keys map[string]int) *StaticAuthenticator {
	levels := make(map[string]engine.CapabilityLevel, len(keys))
	for k, v := range keys {
		levels[k] = engine.CapabilityLevel(v)
	}
	return &StaticAuthenticator{keys: levels}
}

func (a *StaticAuthenticator) Authenticate(r *http.Request) (orchestrator.AuthContext, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return orchestrator.AuthContext{}, apierr.New(apierr.KindAuthentication, "httpapi.Authenticate", "missing Authorization header")
	}

	token := header
	if strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	}

	level, ok := a.keys[token]
	if !ok {
		return orchestrator.AuthContext{}, apierr.New(apierr.KindAuthentication, "httpapi.Authenticate", "invalid API key")
	}

	return orchestrator.AuthContext{CallerID: token, CapabilityLevel: level}, nil
}
