package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Sheshiyer/Selemene-engine-sub002/apierr"
	"github.com/Sheshiyer/Selemene-engine-sub002/logging"
)

// middleware is the standard http.Handler-wrapping function signature used
// throughout this file, matching core.LoggingMiddleware's composition style.
type middleware func(http.Handler) http.Handler

// chain applies middlewares in order, so the first entry is outermost (runs
// first on a request, last on a response) — CORS, then logging, then rate
// limiting, then the timeout guard, matching ordering.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// corsMiddleware answers preflight requests and tags every response with the
// configured allowed origins, grounded on core's CORS handling in
// middleware.go.
func corsMiddleware(allowedOrigins []string) middleware {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code for
// the access log line, matching core.responseWriter.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware stamps every request with a correlation id (reusing an
// inbound X-Request-ID if present) and logs method/path/status/duration.
func loggingMiddleware(logger logging.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := r.Header.Get("X-Request-ID")
			if cid == "" {
				cid = uuid.NewString()
			}
			ctx := logging.WithCorrelationID(r.Context(), cid)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", cid)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r)

			logger.InfoWithContext(ctx, "request handled", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// rateLimitMiddleware rejects a caller's request once it exceeds its window
// budget. Keyed on the Authorization header's token rather than the resolved
// AuthContext so an invalid key is still rate-limited (it runs before auth).
func rateLimitMiddleware(rl *RateLimiter) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Authorization")
			if key == "" {
				key = r.RemoteAddr
			}
			now := time.Now()
			if !rl.Allow(key, now) {
				writeError(w, r, apierr.New(apierr.KindRateLimited, "httpapi.rateLimit", "rate limit exceeded").
					WithDetails(map[string]interface{}{"retry_after_seconds": rl.RetryAfter(key, now)}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// timeoutMiddleware bounds request handling to the configured timeout,
// cancelling the request context so every blocking call downstream
// (engine.Calculate, the remote proxy, cache I/O) observes it.
func timeoutMiddleware(timeout time.Duration) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
