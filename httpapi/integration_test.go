package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sheshiyer/Selemene-engine-sub002/cache"
	"github.com/Sheshiyer/Selemene-engine-sub002/config"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/engines"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
	"github.com/Sheshiyer/Selemene-engine-sub002/metrics"
	"github.com/Sheshiyer/Selemene-engine-sub002/orchestrator"
	"github.com/Sheshiyer/Selemene-engine-sub002/registry"
	"github.com/Sheshiyer/Selemene-engine-sub002/synthesis"
	"github.com/Sheshiyer/Selemene-engine-sub002/workflow"
)

// newIntegrationServer wires the full stack (registry, L1+L2 cache tier
// backed by miniredis, orchestrator, HTTP server) the way cmd/server/main.go
// does, so end-to-end scenarios 1-3 can be driven over a real
// httptest.Server instead of calling package internals directly.
func newIntegrationServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	l1 := cache.NewL1(1 << 20)
	l2, err := cache.NewL2("redis://"+mr.Addr(), "itest", logging.NoOpLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l2.Close() })
	l3, err := cache.LoadL3("")
	require.NoError(t, err)
	tier := cache.NewTier(l1, l2, l3, cache.TTLPair{L1: time.Minute, L2: time.Minute})

	reg := registry.New()
	reg.Register(engines.Sum{})
	reg.Register(engines.Deep{})
	reg.Register(engines.EngineA)
	reg.Register(engines.EngineB)
	reg.Register(engines.EngineC)
	reg.Seal()

	table := workflow.NewTable(workflow.Definition{
		ID:        "abc",
		Name:      "A/B/C sample workflow",
		EngineIDs: []engine.EngineId{"a", "b", "c"},
		Strategy:  synthesis.StrategyThemeDetection,
		TTLClass:  cache.ClassMixed,
		Policy:    workflow.PolicyBestEffort,
	})

	orch := orchestrator.New(reg, tier, table, synthesis.NewThemeDetector(), metrics.NoOpSink{}, logging.NoOpLogger{}, false)

	cfg := &config.Config{
		AllowedOrigins:      []string{"*"},
		RequestTimeout:      2 * time.Second,
		RateLimitRequests:   1000,
		RateLimitWindowSecs: time.Minute,
		APIKeys:             map[string]int{"caller-l0": 0, "caller-l5": 5},
	}
	auth := NewStaticAuthenticator(cfg.APIKeys)
	server := New(cfg, orch, reg, table, tier, auth, logging.NoOpLogger{}, nil, nil)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, "caller-l5"
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

// End-to-end scenario 1: sum engine cold then warm cache.
func TestIntegrationSumEngineColdThenWarmCache(t *testing.T) {
	ts, token := newIntegrationServer(t)

	body := map[string]interface{}{"options": map[string]interface{}{"a": 2, "b": 3}}

	resp1, out1 := doJSON(t, ts, http.MethodPost, "/engines/sum/calculate", token, body)
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	meta1 := out1["metadata"].(map[string]interface{})
	assert.Equal(t, false, meta1["cache_hit"])

	resp2, out2 := doJSON(t, ts, http.MethodPost, "/engines/sum/calculate", token, body)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	meta2 := out2["metadata"].(map[string]interface{})
	assert.Equal(t, true, meta2["cache_hit"])
	assert.Equal(t, out1["result"], out2["result"])
}

// End-to-end scenario 2: capability denied.
func TestIntegrationCapabilityDenied(t *testing.T) {
	ts, _ := newIntegrationServer(t)
	resp, out := doJSON(t, ts, http.MethodPost, "/engines/deep/calculate", "caller-l0", map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "CAPABILITY_DENIED", out["error_code"])
}

// End-to-end scenario 3: workflow partial failure (engine b always fails).
func TestIntegrationWorkflowPartialFailure(t *testing.T) {
	ts, token := newIntegrationServer(t)
	resp, out := doJSON(t, ts, http.MethodPost, "/workflows/abc/execute", token, map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	engineOutputs := out["engine_outputs"].(map[string]interface{})
	_, hasA := engineOutputs["a"]
	_, hasC := engineOutputs["c"]
	assert.True(t, hasA)
	assert.True(t, hasC)

	failed := out["failed_engines"].(map[string]interface{})
	assert.Contains(t, failed, "b")
}

// Missing/invalid auth is rejected before any engine runs.
func TestIntegrationMissingAuthRejected(t *testing.T) {
	ts, _ := newIntegrationServer(t)
	resp, out := doJSON(t, ts, http.MethodPost, "/engines/sum/calculate", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTHENTICATION_ERROR", out["error_code"])
}

func TestIntegrationUnknownEngineReturns404(t *testing.T) {
	ts, token := newIntegrationServer(t)
	resp, out := doJSON(t, ts, http.MethodPost, "/engines/nope/calculate", token, map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_ENGINE", out["error_code"])
}

func TestIntegrationHealthAndReady(t *testing.T) {
	ts, _ := newIntegrationServer(t)

	resp, out := doJSON(t, ts, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])

	readyResp, readyOut := doJSON(t, ts, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, readyResp.StatusCode)
	assert.Equal(t, "up", readyOut["l2"])
}
