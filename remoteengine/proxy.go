// Package remoteengine implements the out-of-process engine bridge: a
// concrete engine.Engine that forwards to an out-of-process engine over
// HTTP, structurally grounded on orchestration.ServiceCapabilityProvider's
// layered-resilience shape (circuit breaker check -> HTTP call ->
// retry-with-backoff).
package remoteengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
	"github.com/Sheshiyer/Selemene-engine-sub002/resilience"
)

// Proxy is a concrete engine.Engine implementation that forwards Calculate
// calls to an out-of-process engine over HTTP (JSON).
type Proxy struct {
	descriptor engine.EngineDescriptor
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	retryCfg   resilience.RetryConfig
	logger     logging.Logger

	// now stamps RecordFailure calls; defaults to time.Now. Breaker.Allow
	// reads the real wall clock internally (time.Since(openedAt)), so tests
	// exercise the OPEN -> HALF_OPEN cooldown by backdating the failure
	// timestamp rather than by sleeping, the same trick
	// resilience/breaker_test.go plays by rewriting openedAt directly.
	now func() time.Time
}

// Config configures a Proxy.
type Config struct {
	Descriptor engine.EngineDescriptor
	BaseURL    string
	Timeout    time.Duration
	Logger     logging.Logger
}

// New builds a Proxy with its own connection pool (reused across calls) and
// a dedicated circuit breaker.
func New(cfg Config) *Proxy {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	return &Proxy{
		descriptor: cfg.Descriptor,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		breaker:  resilience.NewBreaker(),
		retryCfg: resilience.DefaultRemoteEngineRetryConfig(),
		logger:   cfg.Logger.WithComponent("remoteengine"),
		now:      time.Now,
	}
}

// Descriptor returns the statically configured descriptor; a remote engine
// is not introspected at runtime.
func (p *Proxy) Descriptor() engine.EngineDescriptor {
	return p.descriptor
}

// CacheKey runs the same normalization rules as an in-process engine would,
// so the cache tier is shared between the proxy and the remote service's own
// cache.
func (p *Proxy) CacheKey(input engine.EngineInput) engine.CacheKey {
	return engine.DeriveCacheKey(p.descriptor.ID, input, p.descriptor.VersionTag)
}

// remoteError classifies a non-2xx HTTP response or transport failure into
// the remote_4xx (non-retryable) / remote_5xx (retryable) buckets.
type remoteError struct {
	retryable bool
	err       error
}

func (e *remoteError) Error() string { return e.err.Error() }
func (e *remoteError) Unwrap() error { return e.err }

func classify(statusCode int, transportErr error) *remoteError {
	if transportErr != nil {
		return &remoteError{retryable: true, err: transportErr}
	}
	if statusCode >= 500 {
		return &remoteError{retryable: true, err: fmt.Errorf("remote engine returned status %d", statusCode)}
	}
	return &remoteError{retryable: false, err: fmt.Errorf("remote engine returned status %d", statusCode)}
}

// Calculate implements engine.Engine. It checks the circuit breaker first;
// if OPEN, it returns CircuitOpen immediately without contacting the remote
// process. Otherwise it performs the HTTP call with the retry policy.
func (p *Proxy) Calculate(ctx context.Context, input engine.EngineInput) (engine.EngineOutput, error) {
	allowed, retryAfter := p.breaker.Allow()
	if !allowed {
		return engine.EngineOutput{}, apierr.New(apierr.KindCircuitOpen, "remoteengine.Calculate",
			fmt.Sprintf("circuit open for engine %s", p.descriptor.ID)).
			WithDetails(map[string]interface{}{"retry_after_seconds": int(retryAfter.Seconds())})
	}

	var output engine.EngineOutput
	var deserializationFailed bool

	err := resilience.Retry(ctx, p.retryCfg, func(err error) bool {
		re, ok := err.(*remoteError)
		return ok && re.retryable
	}, func() error {
		out, rerr := p.doRequest(ctx, input)
		if rerr != nil {
			if _, isRemote := rerr.(*remoteError); !isRemote {
				deserializationFailed = true
			}
			return rerr
		}
		output = out
		return nil
	})

	if err != nil {
		if deserializationFailed {
			p.breaker.RecordFailure(p.now())
			return engine.EngineOutput{}, apierr.Wrap(apierr.KindRemoteEngine, "remoteengine.Calculate", err)
		}
		p.breaker.RecordFailure(p.now())
		return engine.EngineOutput{}, apierr.Wrap(apierr.KindRemoteEngine, "remoteengine.Calculate", err)
	}

	p.breaker.RecordSuccess()
	return output, nil
}

func (p *Proxy) doRequest(ctx context.Context, input engine.EngineInput) (engine.EngineOutput, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return engine.EngineOutput{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/engines/%s/calculate", p.baseURL, p.descriptor.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return engine.EngineOutput{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return engine.EngineOutput{}, classify(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return engine.EngineOutput{}, classify(resp.StatusCode, nil)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return engine.EngineOutput{}, fmt.Errorf("read response: %w", err)
	}

	var out engine.EngineOutput
	if err := json.Unmarshal(respBody, &out); err != nil {
		// Deserialization errors are never retried.
		return engine.EngineOutput{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Validate checks the same structural invariants an in-process engine's
// output would be checked against.
func (p *Proxy) Validate(output engine.EngineOutput) engine.ValidationReport {
	var errs []string
	if output.InquiryString == "" {
		errs = append(errs, "inquiry string is empty")
	}
	if !containsQuestionMark(output.InquiryString) {
		errs = append(errs, "inquiry string does not contain '?'")
	}
	if output.CapabilityLevel < engine.MinCapabilityLevel || output.CapabilityLevel > engine.MaxCapabilityLevel {
		errs = append(errs, "capability level out of range")
	}
	return engine.ValidationReport{Valid: len(errs) == 0, Errors: errs}
}

func containsQuestionMark(s string) bool {
	for _, r := range s {
		if r == '?' {
			return true
		}
	}
	return false
}

// BreakerState exposes the circuit state for GET /ready.
func (p *Proxy) BreakerState() resilience.State {
	return p.breaker.CurrentState()
}
