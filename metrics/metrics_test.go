package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TestOTelSinkConcurrentAccessToSameInstrument mirrors the orchestrator's
// workflow fan-out (orchestrator.ExecuteWorkflow spins up one goroutine per
// permitted engine, each calling IncCounter/ObserveHistogram for the same
// metric name through the same *OTelSink). Run with `go test -race` to
// confirm the instrument caches no longer race now that they're
// mutex-guarded.
func TestOTelSinkConcurrentAccessToSameInstrument(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	otel.SetMeterProvider(provider)

	sink := NewOTelSink("concurrent-test")

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			sink.IncCounter(context.Background(), "engine_calls_total", map[string]string{"engine_id": "a", "outcome": "success"})
			sink.ObserveHistogram(context.Background(), "engine_call_duration_seconds", 0.01, map[string]string{"engine_id": "a"})
		}()
	}
	wg.Wait()

	assert.Len(t, sink.counters, 1)
	assert.Len(t, sink.histograms, 1)
}
