package remoteengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
)

func newTestProxy(t *testing.T, baseURL string) *Proxy {
	t.Helper()
	return New(Config{
		Descriptor: engine.EngineDescriptor{ID: "rem", Name: "Remote", VersionTag: "v1"},
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		Logger:     logging.NoOpLogger{},
	})
}

// TestProxyCircuitOpensAfterFiveConsecutiveFailures mirrors
// resilience/breaker_test.go's TestBreakerOpensAfterExactlyFiveConsecutiveFailures,
// but drives the breaker through the Proxy's real Calculate path against an
// httptest.Server that always 500s, confirming the 6th call short-circuits
// without reaching the network.
func TestProxyCircuitOpensAfterFiveConsecutiveFailures(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestProxy(t, srv.URL)

	for i := 0; i < 5; i++ {
		_, err := p.Calculate(context.Background(), engine.EngineInput{})
		require.Error(t, err, "call %d must fail against an always-500 server", i+1)
		apiErr, ok := apierr.As(err)
		require.True(t, ok)
		assert.Equal(t, apierr.KindRemoteEngine, apiErr.Kind)
	}

	afterFive := atomic.LoadInt32(&requests)

	_, err := p.Calculate(context.Background(), engine.EngineInput{})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindCircuitOpen, apiErr.Kind, "the 6th call must short-circuit once the breaker is open")

	assert.Equal(t, afterFive, atomic.LoadInt32(&requests), "a short-circuited call must not reach the remote server")
}

// TestProxyHalfOpenProbeClosesOnSuccess opens the breaker the same way, then
// backdates the failure timestamp p.now() supplies to RecordFailure so the
// breaker's real-time cooldown (Breaker.Allow's time.Since(openedAt)) reads
// as already elapsed, without the test sleeping 30s. This is the same trick
// resilience/breaker_test.go plays via direct field access, routed through
// the public RecordFailure(now) parameter since Proxy and Breaker are
// different packages.
func TestProxyHalfOpenProbeClosesOnSuccess(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		out := engine.EngineOutput{
			EngineID:      "rem",
			Result:        json.RawMessage(`{"ok":true}`),
			InquiryString: "is this the remote probe response?",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	p := newTestProxy(t, srv.URL)
	p.now = func() time.Time { return time.Now().Add(-31 * time.Second) }

	for i := 0; i < 5; i++ {
		_, err := p.Calculate(context.Background(), engine.EngineInput{})
		require.Error(t, err)
	}
	assert.Equal(t, "OPEN", string(p.BreakerState()))

	failing.Store(false)
	out, err := p.Calculate(context.Background(), engine.EngineInput{})
	require.NoError(t, err, "the half-open probe must be let through once the backdated cooldown has elapsed")
	assert.Equal(t, "is this the remote probe response?", out.InquiryString)
	assert.Equal(t, "CLOSED", string(p.BreakerState()), "a successful probe must close the breaker")
}

// TestProxyDeserializationErrorIsNotRetried confirms a malformed response
// body is surfaced after exactly one attempt, never retried, matching
// resilience.Retry's shouldRetry contract for non-*remoteError failures.
func TestProxyDeserializationErrorIsNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := newTestProxy(t, srv.URL)

	_, err := p.Calculate(context.Background(), engine.EngineInput{})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindRemoteEngine, apiErr.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "a decode failure must not be retried")
}

// TestProxyRetriesTransientFailureThenSucceeds confirms a transient 500
// followed by a 200 succeeds within the retry budget and never opens the
// breaker.
func TestProxyRetriesTransientFailureThenSucceeds(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		out := engine.EngineOutput{
			EngineID:      "rem",
			Result:        json.RawMessage(`{"ok":true}`),
			InquiryString: "did the retry succeed?",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	p := newTestProxy(t, srv.URL)

	out, err := p.Calculate(context.Background(), engine.EngineInput{})
	require.NoError(t, err)
	assert.Equal(t, "did the retry succeed?", out.InquiryString)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Equal(t, "CLOSED", string(p.BreakerState()))
}
