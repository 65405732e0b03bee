// Package metrics wraps the OpenTelemetry meter as a metrics-sink
// collaborator (counters and histograms), grounded on gomind's telemetry
// package's otel.go/metrics.go setup.
package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Sink is the counter/histogram contract every component depends on.
type Sink interface {
	IncCounter(ctx context.Context, name string, attrs map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, attrs map[string]string)
}

// OTelSink implements Sink against an otel.Meter, caching instruments by
// name the way telemetry.UnifiedMetrics avoids re-registering instruments on
// every call. The instrument caches are read from and written to
// concurrently (the orchestrator's workflow fan-out calls IncCounter /
// ObserveHistogram for the same metric name from every fanned-out engine's
// goroutine at once, matching cache/l1_lru.go's and resilience/breaker.go's
// own mutex-guarded-shared-state pattern), so both maps are guarded by mu.
type OTelSink struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelSink builds a Sink using the global meter provider for
// serviceName. Call otel.SetMeterProvider beforehand (cmd/server wires the
// SDK's provider, falling back to the no-op provider in tests).
func NewOTelSink(serviceName string) *OTelSink {
	return &OTelSink{
		meter:      otel.Meter(serviceName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (s *OTelSink) counter(name string) metric.Int64Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[name]; ok {
		return c
	}
	c, _ := s.meter.Int64Counter(name)
	s.counters[name] = c
	return c
}

func (s *OTelSink) histogram(name string) metric.Float64Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.histograms[name]; ok {
		return h
	}
	h, _ := s.meter.Float64Histogram(name)
	s.histograms[name] = h
	return h
}

func (s *OTelSink) IncCounter(ctx context.Context, name string, attrs map[string]string) {
	s.counter(name).Add(ctx, 1, metric.WithAttributes(toAttrs(attrs)...))
}

func (s *OTelSink) ObserveHistogram(ctx context.Context, name string, value float64, attrs map[string]string) {
	s.histogram(name).Record(ctx, value, metric.WithAttributes(toAttrs(attrs)...))
}

func toAttrs(m map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		out = append(out, attribute.String(k, v))
	}
	return out
}

// NoOpSink discards everything; the zero-value-safe default for tests.
type NoOpSink struct{}

func (NoOpSink) IncCounter(context.Context, string, map[string]string)                {}
func (NoOpSink) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// SetupPrometheusExporter registers an OTel Prometheus exporter as the
// global meter provider and returns the http.Handler that exposes its
// registry in the Prometheus text-exposition format, so GET /metrics can
// proxy straight to it instead of serializing an ad hoc JSON object: this
// is the one concrete path the engine_calls_total/workflow_calls_total/
// engine_call_duration_seconds instruments recorded through OTelSink
// actually leave the process through, grounded on
// compozy-compozy's own otel/exporters/prometheus + promhttp.Handler()
// wiring for its own /metrics route.
func SetupPrometheusExporter() (shutdown func(context.Context) error, handler http.Handler, err error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider.Shutdown, promhttp.Handler(), nil
}
