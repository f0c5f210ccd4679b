package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/scholarship-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/service/ratelimiter"
	"github.com/fairyhunter13/scholarship-matcher/internal/usecase"
)

type fakeMatcher struct{}

func (fakeMatcher) MatchSearch(context.Context, usecase.RawProfile) (usecase.SearchResult, error) {
	return usecase.SearchResult{Scholarships: []domain.ScholarshipRecommendation{}}, nil
}

func (fakeMatcher) MatchCatalog(context.Context, usecase.CatalogRequest) (usecase.CatalogResult, error) {
	return usecase.CatalogResult{Success: true, Recommendations: []domain.CatalogRecommendation{}, AIPowered: true}, nil
}

func testConfig(perMin int) config.Config {
	return config.Config{CORSAllowOrigins: "*", RateLimitPerMin: perMin}
}

func newRouter(t *testing.T, cfg config.Config, limiter ratelimiter.Limiter) http.Handler {
	t.Helper()
	observability.InitMetrics()
	return BuildRouter(cfg, httpserver.NewServer(fakeMatcher{}, nil), limiter)
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, ParseOrigins(""))
	assert.Equal(t, []string{"*"}, ParseOrigins(" * "))
	assert.Equal(t, []string{"*"}, ParseOrigins(" , "))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, ParseOrigins("https://a.example, https://b.example"))
}

func TestRouter_Routes(t *testing.T) {
	h := newRouter(t, testConfig(0), nil)

	rec := send(h, http.MethodPost, "/v1/match", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scholarships":[]}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	for _, p := range []string{"/v1/recommendations", "/functions/v1/scholarship-recommendations"} {
		rec = send(h, http.MethodPost, p, `{"profile":{}}`)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.JSONEq(t, `{"success":true,"recommendations":[],"total_analyzed":0,"ai_powered":true}`, rec.Body.String())
	}

	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/metrics", "").Code)
}

func TestRouter_MethodNotAllowedAndNotFound(t *testing.T) {
	h := newRouter(t, testConfig(0), nil)

	rec := send(h, http.MethodGet, "/v1/match", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body["code"])

	rec = send(h, http.MethodPost, "/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newRouter(t, testConfig(0), nil)
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/scholarship-recommendations", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouter_CatalogCORSWithoutOrigin(t *testing.T) {
	h := newRouter(t, testConfig(0), nil)
	rec := send(h, http.MethodPost, "/v1/recommendations", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-client-info")

	rec = send(h, http.MethodOptions, "/functions/v1/scholarship-recommendations", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// errors keep the headers too
	rec = send(h, http.MethodPost, "/v1/recommendations", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CatalogCORSRestrictedOrigins(t *testing.T) {
	cfg := testConfig(0)
	cfg.CORSAllowOrigins = "https://app.example"
	h := newRouter(t, cfg, nil)
	rec := send(h, http.MethodPost, "/v1/recommendations", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_LocalRateLimit(t *testing.T) {
	h := newRouter(t, testConfig(1), nil)
	assert.Equal(t, http.StatusOK, send(h, http.MethodPost, "/v1/match", `{}`).Code)

	rec := send(h, http.MethodPost, "/v1/match", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// probes are outside the limited group
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/healthz", "").Code)
}

func TestRouter_SharedRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
		matchBucket: ratelimiter.NewBucketConfigFromPerMinute(1),
	})
	h := newRouter(t, testConfig(1), limiter)

	assert.Equal(t, http.StatusOK, send(h, http.MethodPost, "/v1/match", `{}`).Code)
	// both pipeline routes draw from the same bucket
	rec := send(h, http.MethodPost, "/v1/recommendations", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
