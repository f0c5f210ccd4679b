// Package gemini implements domain.ChatClient on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/upstream"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	obsctx "github.com/fairyhunter13/scholarship-matcher/internal/observability"
)

const provider = config.LLMProviderGemini

// Client wraps a lazily created genai client; one Chat call is one
// GenerateContent request. A failed dial is not cached, the next call retries it.
type Client struct {
	apiKey string
	model  string
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

var _ domain.ChatClient = (*Client)(nil)

// New returns a client for cfg.LLMModel. Extra options are passed to
// genai.NewClient after the API key.
func New(cfg config.Config, opts ...option.ClientOption) *Client {
	return &Client{apiKey: cfg.LLMAPIKey, model: cfg.LLMModel, opts: opts}
}

// CheckConfig implements domain.ChatClient.
func (c *Client) CheckConfig() error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: LLM_API_KEY is not set", domain.ErrConfiguration)
	}
	if c.model == "" {
		return fmt.Errorf("%w: LLM_MODEL is required", domain.ErrConfiguration)
	}
	return nil
}

func (c *Client) conn(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.opts...)
	gc, err := genai.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, err
	}
	c.client = gc
	return gc, nil
}

// Close releases the underlying connection. A later Chat dials again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Chat implements domain.ChatClient.
func (c *Client) Chat(ctx domain.Context, req domain.ChatRequest) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("provider", provider), slog.String("model", c.model))
	gc, err := c.conn(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gemini client: %v", domain.ErrConfiguration, err)
	}
	model := gc.GenerativeModel(c.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.ResponseMIMEType = "application/json"
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	observability.ObserveAIRequest(provider, "chat", start)
	if err != nil {
		lg.Error("ai provider request failed", slog.Any("error", err), slog.Duration("elapsed", time.Since(start)))
		return "", classify(err)
	}
	text, err := responseText(resp)
	if err != nil {
		lg.Error("ai provider returned no text", slog.Any("error", err))
		return "", &domain.UpstreamError{Kind: domain.ErrUpstreamModel, Provider: provider, Message: err.Error()}
	}
	lg.Info("ai provider call ok", slog.Duration("elapsed", time.Since(start)), slog.Int("content_len", len(text)))
	return text, nil
}

// classify maps genai errors onto the domain taxonomy: API status errors are
// transport failures, blocked prompts or candidates are model failures.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &domain.UpstreamError{Kind: domain.ErrUpstreamModel, Provider: provider, Message: blocked.Error()}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = gerr.Error()
		}
		return upstream.StatusError(provider, domain.ErrUpstreamTransport, gerr.Code, msg)
	}
	return upstream.TransportError(provider, domain.ErrUpstreamTransport, err)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text parts in response")
	}
	return sb.String(), nil
}
