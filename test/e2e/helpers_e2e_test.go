//go:build e2e

// Package e2e_test drives a running server. Start it with real or fake
// upstreams, then: E2E_BASE_URL=http://localhost:8080 go test -tags e2e ./test/e2e/...
package e2e_test

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseURL = strings.TrimRight(getenv("E2E_BASE_URL", "http://localhost:8080"), "/")

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

var client = &http.Client{Timeout: 90 * time.Second}

// requireApp skips the test when no server answers /healthz.
func requireApp(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(baseURL + "/healthz")
	if err != nil {
		t.Skip("app not available; skipping e2e")
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("app unhealthy (%d); skipping e2e", resp.StatusCode)
	}
}

func postJSON(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := client.Post(baseURL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out), "every response must be JSON")
	return resp, out
}
