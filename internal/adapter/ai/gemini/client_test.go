package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

func TestCheckConfig(t *testing.T) {
	t.Parallel()
	c := New(config.Config{LLMModel: "gemini-1.5-flash"})
	require.ErrorIs(t, c.CheckConfig(), domain.ErrConfiguration)
	_, err := c.Chat(context.Background(), domain.ChatRequest{UserPrompt: "hi"})
	require.ErrorIs(t, err, domain.ErrConfiguration)

	assert.NoError(t, New(config.Config{LLMAPIKey: "k", LLMModel: "gemini-1.5-flash"}).CheckConfig())
	assert.Error(t, New(config.Config{LLMAPIKey: "k"}).CheckConfig())
}

func TestResponseText(t *testing.T) {
	t.Parallel()
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"recommendations":`), genai.Text(`[]}`)}},
	}}}
	got, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"recommendations":[]}`, got)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	t.Parallel()
	err := classify(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota exceeded"})
	require.ErrorIs(t, err, domain.ErrUpstreamTransport)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
	assert.Contains(t, ue.Message, "quota exceeded")

	err = classify(&genai.BlockedError{})
	assert.ErrorIs(t, err, domain.ErrUpstreamModel)

	err = classify(context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)

	err = classify(errors.New("boom"))
	assert.ErrorIs(t, err, domain.ErrUpstreamTransport)
}

func TestConnLifecycle(t *testing.T) {
	t.Parallel()
	// dialing is lazy, so an unreachable endpoint still yields a client
	c := New(config.Config{LLMAPIKey: "k", LLMModel: "gemini-1.5-flash"}, option.WithEndpoint("127.0.0.1:1"))
	require.NoError(t, c.Close(), "closing an unused client is a no-op")

	first, err := c.conn(context.Background())
	require.NoError(t, err)
	again, err := c.conn(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, again)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = c.conn(context.Background()) }()
		go func() { defer wg.Done(); _ = c.Close() }()
	}
	wg.Wait()
	_ = c.Close()

	redialed, err := c.conn(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, redialed)
	_ = c.Close()
}
