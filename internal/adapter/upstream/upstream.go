// Package upstream holds the HTTP plumbing shared by the search and model
// clients: traced transports, bounded body reads and error classification.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// MaxBodyBytes bounds every provider response read.
const MaxBodyBytes = 4 << 20

// NewHTTPClient returns a client whose transport emits OpenTelemetry spans.
// A zero timeout leaves the deadline to the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// ReadBody reads at most MaxBodyBytes of the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
}

// Snippet truncates b to n bytes for logs and error messages.
func Snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// ContentType sniffs the body; providers behind proxies sometimes answer with
// HTML error pages while claiming application/json.
func ContentType(b []byte) string {
	return mimetype.Detect(b).String()
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// TransportError classifies a failed round trip. Timeouts additionally satisfy
// errors.Is(err, domain.ErrUpstreamTimeout).
func TransportError(provider string, kind error, err error) *domain.UpstreamError {
	ue := &domain.UpstreamError{Kind: kind, Provider: provider, Message: err.Error(), Cause: err}
	if IsTimeout(err) {
		ue.Message = "request timed out"
		ue.Cause = fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return ue
}

// StatusError builds the error for a non-2xx response.
func StatusError(provider string, kind error, status int, msg string) *domain.UpstreamError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &domain.UpstreamError{Kind: kind, Provider: provider, Status: status, Message: fmt.Sprintf("status %d: %s", status, msg)}
}
