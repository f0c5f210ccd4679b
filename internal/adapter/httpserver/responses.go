package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// errorBody is the failure envelope of every endpoint.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// classify maps an error onto status, code and the public message. Order
// matters: a timeout is also a transport error.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request"
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "CONFIGURATION_ERROR", "service is not configured"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "upstream timed out"
	case errors.Is(err, domain.ErrRetrieval):
		return http.StatusBadGateway, "RETRIEVAL_ERROR", "scholarship search failed"
	case errors.Is(err, domain.ErrUpstreamModel):
		return http.StatusBadGateway, "UPSTREAM_MODEL_ERROR", "model provider returned an error"
	case errors.Is(err, domain.ErrUpstreamTransport):
		return http.StatusBadGateway, "UPSTREAM_TRANSPORT_ERROR", "model provider request failed"
	case errors.Is(err, domain.ErrFormat):
		return http.StatusBadGateway, "INVALID_MODEL_RESPONSE", "invalid model response format"
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "scholarship catalog unavailable"
	}
	return http.StatusInternalServerError, "INTERNAL", "internal error"
}

// details prefers the provider's own message. Internal errors expose nothing.
func details(err error, code string) string {
	if code == "INTERNAL" {
		return ""
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	lg := LoggerFrom(r)
	if status >= 500 {
		lg.Error("request failed", slog.String("code", code), slog.Any("error", err))
	} else {
		lg.Warn("request rejected", slog.String("code", code), slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: msg, Details: details(err, code), Code: code})
}

// WriteRateLimited is the rejection writer for the rate-limit middleware.
func WriteRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	if w.Header().Get("Retry-After") == "" {
		secs := int(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeError(w, r, domain.ErrRateLimited)
}

// MethodNotAllowed answers every unsupported method on a known route.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, domain.ErrMethodNotAllowed)
}

// NotFound keeps 404s in the JSON envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Code: "NOT_FOUND"})
}
