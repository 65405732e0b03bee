// Package config reads the process configuration from the environment at
// startup, following the env-var-per-field convention gomind uses in
// core.Config: one explicit `if v := os.Getenv("..."); v != "" { ... }`
// block per field rather than a reflection-driven struct-tag decoder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime-tunable value for the service.
type Config struct {
	HTTPBindAddr string
	AllowedOrigins []string

	RequestTimeout time.Duration

	RateLimitRequests   int
	RateLimitWindowSecs time.Duration

	CacheL1SizeBytes int64
	CacheL1TTL       time.Duration
	CacheL2TTL       time.Duration

	L2URL string // empty disables L2

	RemoteEngineBaseURL string
	RemoteEngineTimeout time.Duration

	LogFormat string // "json" | "text"
	LogLevel  string // "debug" | "info" | "warn" | "error"

	APIKeys map[string]int // API key -> capability level

	OTLPEndpoint string

	L3DataDir string

	EngineVersionOverrides map[string]string // engine id -> version tag

	ShutdownGrace time.Duration

	WorkflowDefinitionsPath string
	WorkflowCacheEnabled    bool
}

// Load builds a Config from the process environment, applying the defaults
// documented below. It fails validation (not a parse error) if
// HTTP_BIND_ADDR, the one required variable, is missing.
func Load() (*Config, error) {
	c := &Config{
		RequestTimeout:      30 * time.Second,
		RateLimitRequests:   100,
		RateLimitWindowSecs: 60 * time.Second,
		CacheL1SizeBytes:    256 * 1024 * 1024,
		CacheL1TTL:          time.Hour,
		CacheL2TTL:          time.Hour,
		RemoteEngineTimeout: 5 * time.Second,
		LogFormat:           "json",
		LogLevel:            "info",
		APIKeys:             map[string]int{},
		EngineVersionOverrides: map[string]string{},
		ShutdownGrace:       30 * time.Second,
		WorkflowCacheEnabled: false, // Open Question #1: disabled by default, see DESIGN.md
	}

	if v := os.Getenv("HTTP_BIND_ADDR"); v != "" {
		c.HTTPBindAddr = v
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitCSV(v)
	}

	if v := os.Getenv("REQUEST_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RequestTimeout = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitRequests = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitWindowSecs = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("CACHE_L1_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.CacheL1SizeBytes = n
		}
	}
	if v := os.Getenv("CACHE_L1_TTL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheL1TTL = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CACHE_L2_TTL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheL2TTL = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("L2_URL"); v != "" {
		c.L2URL = v
	}

	if v := os.Getenv("REMOTE_ENGINE_BASE_URL"); v != "" {
		c.RemoteEngineBaseURL = v
	}
	if v := os.Getenv("REMOTE_ENGINE_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RemoteEngineTimeout = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv("API_KEYS"); v != "" {
		pairs := splitCSV(v)
		for _, p := range pairs {
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				continue
			}
			level, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				continue
			}
			c.APIKeys[strings.TrimSpace(parts[0])] = level
		}
	}

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}

	if v := os.Getenv("L3_DATA_DIR"); v != "" {
		c.L3DataDir = v
	}

	if v := os.Getenv("SHUTDOWN_GRACE_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ShutdownGrace = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("WORKFLOW_DEFINITIONS_PATH"); v != "" {
		c.WorkflowDefinitionsPath = v
	}
	if v := os.Getenv("WORKFLOW_CACHE_ENABLED"); v != "" {
		c.WorkflowCacheEnabled = v == "true" || v == "1"
	}

	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "ENGINE_VERSION_") {
			continue
		}
		kv := strings.SplitN(e, "=", 2)
		if len(kv) != 2 {
			continue
		}
		engineID := strings.ToLower(strings.TrimPrefix(kv[0], "ENGINE_VERSION_"))
		c.EngineVersionOverrides[engineID] = kv[1]
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the required fields, matching core.Config's pattern of a
// dedicated validation pass distinct from parsing.
func (c *Config) Validate() error {
	if c.HTTPBindAddr == "" {
		return fmt.Errorf("config: HTTP_BIND_ADDR is required")
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
