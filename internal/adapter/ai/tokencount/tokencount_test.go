package tokencount

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokenModel(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"gpt-4o-mini":             "gpt-4o",
		"openai/gpt-4o":           "gpt-4o",
		"GPT-3.5-turbo":           "gpt-3.5-turbo",
		"gemini-1.5-flash":        "gpt-4",
		"meta-llama/llama-3.1-8b": "gpt-4",
		"":                        "gpt-4",
	}
	for in, want := range cases {
		assert.Equal(t, want, tiktokenModel(in), in)
	}
}

func TestEstimate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, Estimate())
	assert.Equal(t, 3, Estimate("12345678", "1234"))
}

func TestCountChatTokens(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	short, err := c.CountChatTokens("You are helpful.", "Hi", "gpt-4o-mini")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	long, err := c.CountChatTokens("You are helpful.", "Hi, please rank these twenty scholarships for me by fit.", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Greater(t, short, 8)
	assert.Greater(t, long, short)
}

func TestCounter_ConcurrentUse(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	if _, err := c.CountTokens("warm up", "gpt-4"); err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.CountTokens("The quick brown fox jumps over the lazy dog.", "gemini-1.5-pro")
			assert.NoError(t, err)
			assert.Positive(t, n)
		}()
	}
	wg.Wait()
}
