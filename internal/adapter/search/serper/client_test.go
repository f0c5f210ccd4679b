package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.Config{SearchBaseURL: srv.URL, SearchAPIKey: "key-1", SearchTimeout: 5 * time.Second})
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-API-KEY"))
		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "scholarships nursing", body.Q)
		assert.Equal(t, 20, body.Num)
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"Nursing <b>Award</b>","link":"https://a.org/n","snippet":"Up to $5,000 &amp; more"},
			{"title":"No link","link":"","snippet":"x"},
			{"title":"Second","link":" https://b.org/s ","snippet":"plain"}
		]}`))
	})
	docs, err := c.Search(context.Background(), "scholarships nursing", 20)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.CandidateDocument{Title: "Nursing Award", URL: "https://a.org/n", Snippet: "Up to $5,000 & more"}, docs[0])
	assert.Equal(t, "https://b.org/s", docs[1].URL)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_NoOrganic(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"searchParameters":{"q":"x"}}`))
	})
	docs, err := c.Search(context.Background(), "x", 20)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch_Non2xx(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Unauthorized.","statusCode":403}`))
	})
	_, err := c.Search(context.Background(), "x", 20)
	require.ErrorIs(t, err, domain.ErrRetrieval)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.Status)
	assert.Contains(t, ue.Message, "Unauthorized.")
}

func TestSearch_UndecodableBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	_, err := c.Search(context.Background(), "x", 20)
	require.ErrorIs(t, err, domain.ErrRetrieval)
	assert.Contains(t, err.Error(), "text/html")
}

func TestSearch_NetworkFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := New(config.Config{SearchBaseURL: url, SearchAPIKey: "k"})
	_, err := c.Search(context.Background(), "x", 20)
	require.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestSearch_MissingKey(t *testing.T) {
	t.Parallel()
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()
	c := New(config.Config{SearchBaseURL: srv.URL})
	_, err := c.Search(context.Background(), "x", 20)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.False(t, called)
}
