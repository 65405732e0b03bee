// Command server is the process entrypoint: it wires configuration,
// logging, the cache tier, the engine registry, the workflow table, the
// synthesizer, the metrics sink and the orchestrator behind the HTTP
// surface, then serves until SIGINT/SIGTERM, matching core.BaseTool's
// explicit Initialize/Shutdown lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sheshiyer/Selemene-engine-sub002/cache"
	"github.com/Sheshiyer/Selemene-engine-sub002/config"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/engines"
	"github.com/Sheshiyer/Selemene-engine-sub002/httpapi"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
	"github.com/Sheshiyer/Selemene-engine-sub002/metrics"
	"github.com/Sheshiyer/Selemene-engine-sub002/orchestrator"
	"github.com/Sheshiyer/Selemene-engine-sub002/registry"
	"github.com/Sheshiyer/Selemene-engine-sub002/remoteengine"
	"github.com/Sheshiyer/Selemene-engine-sub002/synthesis"
	"github.com/Sheshiyer/Selemene-engine-sub002/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.NewProductionLogger(cfg.LogLevel, cfg.LogFormat)

	shutdownTracing, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	shutdownMeterProvider, metricsHandler, err := metrics.SetupPrometheusExporter()
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}
	defer shutdownMeterProvider(context.Background())

	sink := metrics.NewOTelSink("selemene-engine")

	cacheTier, closeL2, err := buildCacheTier(cfg, logger)
	if err != nil {
		return fmt.Errorf("cache tier: %w", err)
	}
	defer closeL2()

	reg := registry.New()
	reg.Register(engines.Sum{})
	reg.Register(engines.Deep{})
	reg.Register(engines.Slow{})
	reg.Register(engines.EngineA)
	reg.Register(engines.EngineB)
	reg.Register(engines.EngineC)

	var proxies []*remoteengine.Proxy
	if cfg.RemoteEngineBaseURL != "" {
		proxy := remoteengine.New(remoteengine.Config{
			Descriptor: engine.EngineDescriptor{
				ID:            "rem",
				Name:          "Remote",
				RequiredLevel: 0,
				Remote:        true,
				VersionTag:    resolveVersionTag(cfg, "rem", "v1"),
				TTLClass:      "mixed",
			},
			BaseURL: cfg.RemoteEngineBaseURL,
			Timeout: cfg.RemoteEngineTimeout,
			Logger:  logger,
		})
		reg.Register(proxy)
		proxies = append(proxies, proxy)
	}
	reg.Seal()

	workflows, err := workflow.LoadTable(cfg.WorkflowDefinitionsPath)
	if err != nil {
		return fmt.Errorf("workflows: %w", err)
	}
	if len(workflows.List()) == 0 {
		workflows = workflow.NewTable(workflow.Definition{
			ID:        "abc",
			Name:      "A/B/C sample workflow",
			EngineIDs: []engine.EngineId{"a", "b", "c"},
			Strategy:  synthesis.StrategyThemeDetection,
			TTLClass:  cache.ClassMixed,
			Policy:    workflow.PolicyBestEffort,
		})
	}

	synth := synthesis.NewThemeDetector()

	orch := orchestrator.New(reg, cacheTier, workflows, synth, sink, logger, cfg.WorkflowCacheEnabled)

	auth := httpapi.NewStaticAuthenticator(cfg.APIKeys)
	server := httpapi.New(cfg, orch, reg, workflows, cacheTier, auth, logger, proxies, metricsHandler)

	httpServer := &http.Server{
		Addr:    cfg.HTTPBindAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", map[string]interface{}{"addr": cfg.HTTPBindAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// buildCacheTier assembles the L1/L2/L3 tiers from configuration. L2 is
// disabled entirely when cfg.L2URL is empty; its Close func is a no-op in
// that case.
func buildCacheTier(cfg *config.Config, logger logging.Logger) (*cache.Tier, func() error, error) {
	l1 := cache.NewL1(cfg.CacheL1SizeBytes)

	var l2 *cache.L2
	if cfg.L2URL != "" {
		var err error
		l2, err = cache.NewL2(cfg.L2URL, "selemene", logger)
		if err != nil {
			return nil, func() error { return nil }, err
		}
	}

	l3, err := cache.LoadL3(cfg.L3DataDir)
	if err != nil {
		return nil, func() error { return nil }, err
	}

	tier := cache.NewTier(l1, l2, l3, cache.TTLPair{L1: cfg.CacheL1TTL, L2: cfg.CacheL2TTL})
	closeFn := func() error {
		if l2 != nil {
			return l2.Close()
		}
		return nil
	}
	return tier, closeFn, nil
}

// setupTracing wires the otel trace SDK, matching telemetry.setupTraceProvider's
// endpoint-driven exporter choice: an OTLP gRPC exporter when
// OTEL_EXPORTER_OTLP_ENDPOINT is set, a stdout exporter otherwise, so every
// remoteengine.Proxy HTTP call is traced regardless of environment.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	}

	ctx := context.Background()
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func resolveVersionTag(cfg *config.Config, engineID, fallback string) string {
	if v, ok := cfg.EngineVersionOverrides[engineID]; ok {
		return v
	}
	return fallback
}
