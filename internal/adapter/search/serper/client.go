// Package serper implements domain.SearchProvider against Serper-compatible
// Google search APIs.
package serper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/upstream"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	obsctx "github.com/fairyhunter13/scholarship-matcher/internal/observability"
	"github.com/fairyhunter13/scholarship-matcher/pkg/textx"
)

const provider = "serper"

// Client issues one search request per Search call.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

var _ domain.SearchProvider = (*Client)(nil)

// New constructs a search client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.SearchBaseURL, "/"),
		apiKey:  cfg.SearchAPIKey,
		hc:      upstream.NewHTTPClient(cfg.SearchTimeout + 5*time.Second),
	}
}

// CheckConfig implements domain.SearchProvider.
func (c *Client) CheckConfig() error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: SEARCH_API_KEY is not set", domain.ErrConfiguration)
	}
	if c.baseURL == "" {
		return fmt.Errorf("%w: SEARCH_BASE_URL is required", domain.ErrConfiguration)
	}
	return nil
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	Message string `json:"message"`
}

// Search implements domain.SearchProvider. Results keep provider order; rows
// without a link are skipped.
func (c *Client) Search(ctx domain.Context, query string, num int) ([]domain.CandidateDocument, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("provider", provider))
	body, err := json.Marshal(searchRequest{Q: query, Num: num})
	if err != nil {
		return nil, fmt.Errorf("op=search.Search marshal: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	r.Header.Set("X-API-KEY", c.apiKey)
	r.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveSearchRequest(provider, "error", start)
		lg.Error("search request failed", slog.Any("error", err))
		return nil, upstream.TransportError(provider, domain.ErrRetrieval, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := upstream.ReadBody(resp)
	if err != nil {
		observability.ObserveSearchRequest(provider, "error", start)
		return nil, upstream.TransportError(provider, domain.ErrRetrieval, err)
	}
	var out searchResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ObserveSearchRequest(provider, "error", start)
		msg := upstream.Snippet(raw, 256)
		if decodeErr == nil && out.Message != "" {
			msg = out.Message
		}
		lg.Warn("search provider non-2xx", slog.Int("status", resp.StatusCode), slog.String("body", upstream.Snippet(raw, 512)))
		return nil, upstream.StatusError(provider, domain.ErrRetrieval, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		observability.ObserveSearchRequest(provider, "error", start)
		ct := upstream.ContentType(raw)
		lg.Error("search provider decode error", slog.String("content_type", ct), slog.Any("error", decodeErr))
		return nil, &domain.UpstreamError{
			Kind: domain.ErrRetrieval, Provider: provider, Status: resp.StatusCode,
			Message: "undecodable response (" + ct + ")", Cause: decodeErr,
		}
	}

	docs := make([]domain.CandidateDocument, 0, len(out.Organic))
	for _, o := range out.Organic {
		link := strings.TrimSpace(o.Link)
		if link == "" {
			continue
		}
		docs = append(docs, domain.CandidateDocument{
			Title:   textx.CleanSnippet(o.Title),
			URL:     link,
			Snippet: textx.CleanSnippet(o.Snippet),
		})
	}
	result := "ok"
	if len(docs) == 0 {
		result = "empty"
	}
	observability.ObserveSearchRequest(provider, result, start)
	lg.Info("search ok", slog.Int("results", len(docs)), slog.Duration("elapsed", time.Since(start)))
	return docs, nil
}
