package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsNamespace prefixes every collector, e.g. scholarship_http_requests_total.
const metricsNamespace = "scholarship"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ai_requests_total",
			Help:      "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ai_request_duration_seconds",
			Help:      "AI request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider", "operation"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "search_requests_total",
			Help:      "Total number of web search requests by provider and result",
		},
		[]string{"provider", "result"},
	)
	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "search_request_duration_seconds",
			Help:      "Web search request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	MatchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "match_outcomes_total",
			Help:      "Pipeline runs by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)
	MatchDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "match_dropped_records_total",
			Help:      "Model records dropped during normalization by variant and reason",
		},
		[]string{"variant", "reason"},
	)
	MatchScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_score",
			Help:      "Distribution of emitted match scores ([0,100])",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"variant"},
	)
	PromptTokensHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_prompt_tokens",
			Help:      "Estimated prompt tokens per model call",
			Buckets:   prometheus.ExponentialBuckets(250, 2, 8),
		},
		[]string{"variant"},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call
// more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			SearchRequestsTotal,
			SearchRequestDuration,
			MatchOutcomesTotal,
			MatchDroppedTotal,
			MatchScoreHistogram,
			PromptTokensHistogram,
			RateLimitedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

func routePattern(r *http.Request) string {
	// Route pattern may be unavailable outside chi router; guard nil
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// ObserveAIRequest records one model call.
func ObserveAIRequest(provider, op string, started time.Time) {
	AIRequestsTotal.WithLabelValues(provider, op).Inc()
	AIRequestDuration.WithLabelValues(provider, op).Observe(time.Since(started).Seconds())
}

// ObserveSearchRequest records one search call; result is "ok", "empty" or "error".
func ObserveSearchRequest(provider, result string, started time.Time) {
	SearchRequestsTotal.WithLabelValues(provider, result).Inc()
	SearchRequestDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// ObserveRateLimited records a rejected request.
func ObserveRateLimited(r *http.Request) {
	RateLimitedTotal.WithLabelValues(routePattern(r)).Inc()
}
