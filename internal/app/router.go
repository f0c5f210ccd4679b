// Package app wires the HTTP router and dependency probes of the service.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/scholarship-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/service/ratelimiter"
)

// matchBucket names the token bucket shared by both pipeline endpoints.
const matchBucket = "match"

var corsAllowedHeaders = []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey", "X-Request-Id"}

// catalogCORS puts the permissive headers on every catalog response, including
// requests without an Origin header, which go-chi/cors leaves untouched. A bare
// OPTIONS that is not a preflight gets 204. Restricted origin lists are left to
// go-chi/cors alone.
func catalogCORS(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 1 && origins[0] == "*"
	allowHeaders := strings.Join(corsAllowedHeaders, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wildcard {
				h := w.Header()
				if h.Get("Access-Control-Allow-Origin") == "" {
					h.Set("Access-Control-Allow-Origin", "*")
					h.Set("Access-Control-Allow-Headers", allowHeaders)
					h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func onLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	observability.ObserveRateLimited(r)
	httpserver.WriteRateLimited(w, r, retryAfter)
}

// rateLimit picks the shared Redis bucket when a limiter is given and the
// in-process httprate window otherwise.
func rateLimit(cfg config.Config, limiter ratelimiter.Limiter) func(http.Handler) http.Handler {
	if cfg.RateLimitPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if limiter != nil {
		return ratelimiter.Middleware(limiter, matchBucket, ratelimiter.ClientIP, onLimited)
	}
	return httprate.Limit(cfg.RateLimitPerMin, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			onLimited(w, r, time.Minute)
		}),
	)
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
// limiter may be nil.
func BuildRouter(cfg config.Config, srv *httpserver.Server, limiter ratelimiter.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout()))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	origins := ParseOrigins(cfg.CORSAllowOrigins)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"POST", "OPTIONS"},
		AllowedHeaders:   corsAllowedHeaders,
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.MethodNotAllowed(httpserver.MethodNotAllowed)
	r.NotFound(httpserver.NotFound)

	catalogPaths := []string{"/v1/recommendations", "/functions/v1/scholarship-recommendations"}
	r.Group(func(wr chi.Router) {
		wr.Use(rateLimit(cfg, limiter))
		wr.Post("/v1/match", srv.MatchHandler())
		wr.Group(func(cr chi.Router) {
			cr.Use(catalogCORS(origins))
			for _, p := range catalogPaths {
				cr.Post(p, srv.RecommendationsHandler())
			}
		})
	})
	// OPTIONS stays outside the rate limit
	r.Group(func(cr chi.Router) {
		cr.Use(catalogCORS(origins))
		for _, p := range catalogPaths {
			cr.Options(p, func(http.ResponseWriter, *http.Request) {})
		}
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return httpserver.SecurityHeaders(r)
}
