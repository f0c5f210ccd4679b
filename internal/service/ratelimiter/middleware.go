package ratelimiter

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// KeyFunc extracts the rate-limit subject from a request.
type KeyFunc func(r *http.Request) string

// OnLimited writes the rejection response.
type OnLimited func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

// ClientIP keys requests by the first X-Forwarded-For hop, falling back to the
// remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Middleware charges one token per request against bucket. Rejected requests
// get a Retry-After header (whole seconds, at least 1) before onLimited runs.
func Middleware(l Limiter, bucket string, key KeyFunc, onLimited OnLimited) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			allowed, retryAfter, _ := l.Allow(r.Context(), bucket, key(r), 1)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimited != nil {
				onLimited(w, r, retryAfter)
				return
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}
