// Package real implements the model client against OpenAI-compatible chat
// completion APIs.
package real

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
)

const provider = config.LLMProviderOpenAI

// Client implements domain.ChatClient. It performs exactly one HTTP request per
// Chat call and never retries.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

var _ domain.ChatClient = (*Client)(nil)

// New constructs a client from configuration. The request context bounds each
// call; the HTTP client timeout is only a backstop.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.LLMBaseURL, "/"),
		apiKey:  cfg.LLMAPIKey,
		model:   cfg.LLMModel,
		hc:      upstream.NewHTTPClient(cfg.LLMTimeout + 5*time.Second),
	}
}

// CheckConfig implements domain.ChatClient.
func (c *Client) CheckConfig() error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: LLM_API_KEY is not set", domain.ErrConfiguration)
	}
	if c.baseURL == "" || c.model == "" {
		return fmt.Errorf("%w: LLM_BASE_URL and LLM_MODEL are required", domain.ErrConfiguration)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat posts one chat completion and returns the first choice's content.
func (c *Client) Chat(ctx domain.Context, req domain.ChatRequest) (string, error) {
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("provider", provider), slog.String("model", c.model))
	if err := c.CheckConfig(); err != nil {
		return "", err
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("op=llm.Chat marshal: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	r.Header.Set("Authorization", "Bearer "+c.apiKey)
	r.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(r)
	observability.ObserveAIRequest(provider, "chat", start)
	if err != nil {
		lg.Error("ai provider request failed", slog.Any("error", err), slog.Duration("elapsed", time.Since(start)))
		return "", upstream.TransportError(provider, domain.ErrUpstreamTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := upstream.ReadBody(resp)
	if err != nil {
		return "", upstream.TransportError(provider, domain.ErrUpstreamTransport, err)
	}
	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := upstream.Snippet(raw, 256)
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		lg.Warn("ai provider non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("endpoint", endpoint),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", upstream.Snippet(raw, 512)))
		return "", upstream.StatusError(provider, domain.ErrUpstreamTransport, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		ct := upstream.ContentType(raw)
		lg.Error("ai provider decode error", slog.String("content_type", ct), slog.Any("error", decodeErr))
		return "", &domain.UpstreamError{
			Kind: domain.ErrUpstreamTransport, Provider: provider, Status: resp.StatusCode,
			Message: "undecodable response (" + ct + ")", Cause: decodeErr,
		}
	}
	if out.Error != nil && out.Error.Message != "" {
		lg.Warn("ai provider in-band error", slog.String("message", out.Error.Message), slog.String("type", out.Error.Type))
		return "", &domain.UpstreamError{Kind: domain.ErrUpstreamModel, Provider: provider, Status: resp.StatusCode, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 {
		lg.Error("ai provider returned empty choices")
		return "", &domain.UpstreamError{Kind: domain.ErrUpstreamModel, Provider: provider, Status: resp.StatusCode, Message: "empty choices"}
	}

	attrs := []any{
		slog.Duration("elapsed", time.Since(start)),
		slog.String("finish_reason", out.Choices[0].FinishReason),
		slog.Int("content_len", len(out.Choices[0].Message.Content)),
	}
	if out.Usage != nil {
		attrs = append(attrs, slog.Int("prompt_tokens", out.Usage.PromptTokens), slog.Int("completion_tokens", out.Usage.CompletionTokens))
	}
	if out.Model != "" && out.Model != c.model {
		attrs = append(attrs, slog.String("actual_model", out.Model))
	}
	lg.Info("ai provider call ok", attrs...)
	return out.Choices[0].Message.Content, nil
}
