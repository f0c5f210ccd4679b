package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/usecase"
)

// MaxBodyBytes caps request bodies; profiles are small.
const MaxBodyBytes = 1 << 20

// Matcher is the pipeline as the handlers see it.
type Matcher interface {
	MatchSearch(ctx context.Context, raw usecase.RawProfile) (usecase.SearchResult, error)
	MatchCatalog(ctx context.Context, req usecase.CatalogRequest) (usecase.CatalogResult, error)
}

// Probe is one readiness dependency check.
type Probe func(ctx context.Context) error

// Server aggregates handler dependencies.
type Server struct {
	Matcher Matcher
	// Probes are run concurrently by /readyz, keyed by dependency name.
	Probes       map[string]Probe
	ProbeTimeout time.Duration
}

// NewServer constructs a Server.
func NewServer(m Matcher, probes map[string]Probe) *Server {
	return &Server{Matcher: m, Probes: probes, ProbeTimeout: 2 * time.Second}
}

// catalogRequest is the recommendations body. A bare profile is accepted too.
type catalogRequest struct {
	Profile *usecase.RawProfile `json:"profile"`
	UserID  string              `json:"user_id"`
	UserAlt string              `json:"userId"`
	Limit   int                 `json:"limit"`
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrInvalidArgument, mbe.Limit)
		}
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrInvalidArgument, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrInvalidArgument)
	}
	return body, nil
}

func decodeInto(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		MethodNotAllowed(w, r)
		return false
	}
	return true
}

// MatchHandler runs the ad-hoc web search variant.
func (s *Server) MatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var raw usecase.RawProfile
		if err := decodeInto(body, &raw); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.Matcher.MatchSearch(r.Context(), raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// RecommendationsHandler runs the catalog re-ranking variant.
func (s *Server) RecommendationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req catalogRequest
		if err := decodeInto(body, &req); err != nil {
			writeError(w, r, err)
			return
		}
		in := usecase.CatalogRequest{UserID: strings.TrimSpace(firstNonEmpty(req.UserID, req.UserAlt)), Limit: req.Limit}
		if req.Profile != nil {
			in.Profile = *req.Profile
		} else if err := decodeInto(body, &in.Profile); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Limit < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidArgument))
			return
		}
		if len(in.UserID) > 128 {
			writeError(w, r, fmt.Errorf("%w: user_id too long", domain.ErrInvalidArgument))
			return
		}
		res, err := s.Matcher.MatchCatalog(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// ReadyzHandler probes every configured dependency concurrently.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timeout := s.ProbeTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		names := sortedKeys(s.Probes)
		checks := make([]check, len(names))
		var g errgroup.Group
		for i, name := range names {
			probe := s.Probes[name]
			g.Go(func() error {
				checks[i] = check{Name: name, OK: true}
				if err := probe(ctx); err != nil {
					checks[i] = check{Name: name, OK: false, Details: err.Error()}
				}
				return nil
			})
		}
		_ = g.Wait()

		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sortedKeys(m map[string]Probe) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
