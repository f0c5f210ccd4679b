package domain

import "errors"

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrConfiguration      = errors.New("configuration error")
	ErrRetrieval          = errors.New("retrieval error")
	ErrUpstreamModel      = errors.New("upstream model error")
	ErrUpstreamTransport  = errors.New("upstream transport error")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrFormat             = errors.New("invalid model response format")
	ErrNoJSON             = errors.New("no json found in model response")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrRateLimited        = errors.New("rate limited")
	ErrInternal           = errors.New("internal error")
)

// UpstreamError carries the provider's own message next to the taxonomy sentinel.
type UpstreamError struct {
	Kind     error
	Provider string
	Status   int
	Message  string
	// Cause is the underlying transport or decode error, if any.
	Cause    error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return e.Kind.Error() + " (" + e.Provider + ")"
	}
	return e.Kind.Error() + " (" + e.Provider + "): " + e.Message
}

func (e *UpstreamError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
