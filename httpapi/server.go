// Package httpapi implements the HTTP surface: request/response envelopes,
// the middleware chain and the endpoint set, grounded on core's net/http +
// gorilla/mux wiring (core.BaseTool registers its routes on a *mux.Router
// the same way this Server does).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/cache"
	"github.com/Sheshiyer/Selemene-engine-sub002/config"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
	"github.com/Sheshiyer/Selemene-engine-sub002/orchestrator"
	"github.com/Sheshiyer/Selemene-engine-sub002/registry"
	"github.com/Sheshiyer/Selemene-engine-sub002/remoteengine"
	"github.com/Sheshiyer/Selemene-engine-sub002/workflow"
)

// Server wires the orchestrator, registry and workflow table behind an
// http.Handler.
type Server struct {
	router *mux.Router

	orch          *orchestrator.Orchestrator
	reg           *registry.Registry
	workflows     *workflow.Table
	cacheTier     *cache.Tier
	auth          Authenticator
	logger        logging.Logger
	proxies       []*remoteengine.Proxy
	metricsHandler http.Handler

	startedAt time.Time
}

// New builds a Server and registers every route. proxies lists every remote
// engine proxy wired into the registry, so GET /ready can report their
// circuit-breaker states. metricsHandler is the Prometheus-exposition
// handler GET /metrics proxies to (cmd/server wires it from
// metrics.SetupPrometheusExporter); a nil metricsHandler falls back to a
// small JSON cache-occupancy summary, which is all tests that build a
// Server without a real meter provider need.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, reg *registry.Registry, workflows *workflow.Table, cacheTier *cache.Tier, auth Authenticator, logger logging.Logger, proxies []*remoteengine.Proxy, metricsHandler http.Handler) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		orch:           orch,
		reg:            reg,
		workflows:      workflows,
		cacheTier:      cacheTier,
		auth:           auth,
		logger:         logger.WithComponent("httpapi"),
		proxies:        proxies,
		metricsHandler: metricsHandler,
		startedAt:      time.Now(),
	}

	s.router.HandleFunc("/engines/{id}/calculate", s.handleCalculate).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/engines/{id}", s.handleGetEngine).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/engines", s.handleListEngines).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/workflows/{id}/execute", s.handleExecuteWorkflow).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/workflows/{id}", s.handleGetWorkflow).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/workflows", s.handleListWorkflows).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	rl := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindowSecs)

	protected := []middleware{
		corsMiddleware(cfg.AllowedOrigins),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(rl),
		timeoutMiddleware(cfg.RequestTimeout),
	}
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next, protected...)
	})

	return s
}

// Handler returns the assembled http.Handler, for http.Server.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// errorEnvelope is the JSON shape of every non-2xx response.
type errorEnvelope struct {
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Wrap(apierr.KindInternal, "httpapi", err)
	}

	// CacheUnavailable must never surface to the caller; this path should
	// be unreachable (the cache tier degrades silently), but a defensive
	// remap to Internal keeps the contract even if it leaks here.
	kind := apiErr.Kind
	if kind == apierr.KindCacheUnavailable {
		kind = apierr.KindInternal
	}

	cid, _ := logging.CorrelationID(r.Context())
	writeJSON(w, apierr.StatusFor(kind), errorEnvelope{
		ErrorCode: string(kind),
		Message:   apiErr.Error(),
		Details:   apiErr.Details,
		RequestID: cid,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeInput(r *http.Request) (engine.EngineInput, error) {
	var in engine.EngineInput
	if r.Body == nil {
		return in, nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&in); err != nil {
		return engine.EngineInput{}, apierr.Wrap(apierr.KindValidation, "httpapi.decodeInput", err)
	}
	return in, nil
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (orchestrator.AuthContext, bool) {
	auth, err := s.auth.Authenticate(r)
	if err != nil {
		writeError(w, r, err)
		return orchestrator.AuthContext{}, false
	}
	return auth, true
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	auth, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id := engine.EngineId(mux.Vars(r)["id"])
	input, err := decodeInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.orch.ExecuteEngine(r.Context(), id, input, auth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEngine(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	id := engine.EngineId(mux.Vars(r)["id"])
	e, ok := s.reg.Get(id)
	if !ok {
		writeError(w, r, apierr.New(apierr.KindUnknownEngine, "httpapi.handleGetEngine", "unknown engine"))
		return
	}
	writeJSON(w, http.StatusOK, e.Descriptor())
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"engines": s.reg.List()})
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	auth, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	input, err := decodeInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.orch.ExecuteWorkflow(r.Context(), id, input, auth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	id := mux.Vars(r)["id"]
	def, ok := s.workflows.Get(id)
	if !ok {
		writeError(w, r, apierr.New(apierr.KindUnknownWorkflow, "httpapi.handleGetWorkflow", "unknown workflow"))
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": s.workflows.List()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime_s":   time.Since(s.startedAt).Seconds(),
		"registry_sealed": s.reg.Sealed(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	l1Up, l2Up, l2Enabled := s.cacheTier.Ready(ctx)
	status := http.StatusOK
	l2Status := "skipped"
	if l2Enabled {
		l2Status = "down"
		if l2Up {
			l2Status = "up"
		} else {
			status = http.StatusServiceUnavailable
		}
	}

	breakers := map[string]string{}
	for _, p := range s.proxies {
		breakers[string(p.Descriptor().ID)] = string(p.BreakerState())
		if p.BreakerState() == "OPEN" {
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, map[string]interface{}{
		"l1":              boolStatus(l1Up),
		"l2":              l2Status,
		"registry_sealed": s.reg.Sealed(),
		"remote_engines":  breakers,
	})
}

func boolStatus(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

// handleMetrics serves the text exposition format spec.md requires,
// proxying straight to the Prometheus registry backing every
// engine_calls_total/workflow_calls_total/engine_call_duration_seconds
// instrument the orchestrator records through metrics.Sink. When no real
// meter provider is wired (tests that build a Server directly against
// metrics.NoOpSink), it falls back to a small JSON cache-occupancy summary
// instead of exposing nothing.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metricsHandler != nil {
		s.metricsHandler.ServeHTTP(w, r)
		return
	}
	stats := s.cacheTier.L1Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cache_l1":             stats,
		"cache_l2_unavailable": s.cacheTier.L2UnavailableCount(),
		"cache_l3_size":        s.cacheTier.L3Size(),
		"engines_registered":   len(s.reg.List()),
	})
}
