// Package usecase contains the scholarship matching pipeline: profile
// normalization, query and prompt construction, model-reply parsing and result
// normalization, and the orchestrator that sequences them.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/observability"
)

// Output caps and sampling temperatures per variant.
const (
	DefaultSearchMinResults   = 8
	DefaultSearchMaxResults   = 12
	DefaultCatalogMaxResults  = 15
	DefaultSearchTemperature  = 0.7
	DefaultCatalogTemperature = 0.3
)

// Observer receives pipeline events for metrics. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveOutcome(variant domain.Variant, outcome string)
	ObserveDrops(variant domain.Variant, drops Drops)
	ObserveScores(variant domain.Variant, scores []int)
	ObservePromptTokens(variant domain.Variant, system, user string)
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(domain.Variant, string)              {}
func (nopObserver) ObserveDrops(domain.Variant, Drops)                 {}
func (nopObserver) ObserveScores(domain.Variant, []int)                {}
func (nopObserver) ObservePromptTokens(domain.Variant, string, string) {}

// Options tunes a MatchService. Zero values fall back to the defaults above.
type Options struct {
	SearchResultCount  int
	SearchCandidateCap int
	SearchMinResults   int
	SearchMaxResults   int
	CatalogMaxResults  int
	CatalogScanLimit   int
	MaxTokens          int
	SearchTemperature  float64
	CatalogTemperature float64
	SearchTimeout      time.Duration
	LLMTimeout         time.Duration
	SearchStrictness   domain.Strictness
	CatalogStrictness  domain.Strictness
}

func (o Options) withDefaults() Options {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&o.SearchResultCount, 20)
	def(&o.SearchCandidateCap, 15)
	def(&o.SearchMinResults, DefaultSearchMinResults)
	def(&o.SearchMaxResults, DefaultSearchMaxResults)
	def(&o.CatalogMaxResults, DefaultCatalogMaxResults)
	def(&o.CatalogScanLimit, 50)
	def(&o.MaxTokens, 3000)
	if o.SearchTemperature == 0 {
		o.SearchTemperature = DefaultSearchTemperature
	}
	if o.CatalogTemperature == 0 {
		o.CatalogTemperature = DefaultCatalogTemperature
	}
	if o.SearchStrictness == "" {
		o.SearchStrictness = domain.StrictnessLenient
	}
	if o.CatalogStrictness == "" {
		o.CatalogStrictness = domain.StrictnessStrict
	}
	return o
}

// MatchService sequences the pipeline. It holds no per-request state.
type MatchService struct {
	Search   domain.SearchProvider
	LLM      domain.ChatClient
	Catalog  domain.CatalogRepository
	Store    domain.RecommendationStore
	Observer Observer
	Opts     Options
	Now      func() time.Time
}

// NewMatchService constructs a MatchService. Catalog and store may be nil when
// only the ad-hoc variant is served.
func NewMatchService(search domain.SearchProvider, llm domain.ChatClient, catalog domain.CatalogRepository, store domain.RecommendationStore, opts Options) *MatchService {
	return &MatchService{
		Search:   search,
		LLM:      llm,
		Catalog:  catalog,
		Store:    store,
		Observer: nopObserver{},
		Opts:     opts.withDefaults(),
		Now:      time.Now,
	}
}

// SearchResult is the ad-hoc variant's output.
type SearchResult struct {
	Scholarships []domain.ScholarshipRecommendation `json:"scholarships"`
}

// CatalogRequest is the catalog variant's input.
type CatalogRequest struct {
	Profile RawProfile
	UserID  string
	// Limit optionally lowers the output cap; it can never raise it.
	Limit int
}

// CatalogResult is the catalog variant's output.
type CatalogResult struct {
	Success         bool                           `json:"success"`
	Recommendations []domain.CatalogRecommendation `json:"recommendations"`
	TotalAnalyzed   int                            `json:"total_analyzed"`
	AIPowered       bool                           `json:"ai_powered"`
}

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeEmptySearch  = "empty_search"
	OutcomeEmptyCatalog = "empty_catalog"
	OutcomeRecovered    = "format_recovered"
	OutcomeError        = "error"
)

func (s *MatchService) observer() Observer {
	if s.Observer == nil {
		return nopObserver{}
	}
	return s.Observer
}

func (s *MatchService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// checkConfig runs every credential precondition before any network call.
func checkConfig(checks ...interface{ CheckConfig() error }) error {
	for _, c := range checks {
		if c == nil {
			return fmt.Errorf("%w: upstream client not configured", domain.ErrConfiguration)
		}
		if err := c.CheckConfig(); err != nil {
			return err
		}
	}
	return nil
}

// MatchSearch runs the ad-hoc variant: query, search, prompt, model, parse.
func (s *MatchService) MatchSearch(ctx context.Context, raw RawProfile) (SearchResult, error) {
	const variant = domain.VariantSearch
	ctx, span := otel.Tracer("usecase.match").Start(ctx, "match.Search")
	defer span.End()
	ctx = observability.ContextWithAttrs(ctx, slog.String("variant", string(variant)))
	lg := observability.LoggerFromContext(ctx)
	opts := s.Opts.withDefaults()
	obs := s.observer()

	if err := checkConfig(searchChecker(s.Search), chatChecker(s.LLM)); err != nil {
		obs.ObserveOutcome(variant, OutcomeError)
		return SearchResult{}, err
	}
	profile, err := NormalizeProfile(raw)
	if err != nil {
		obs.ObserveOutcome(variant, OutcomeError)
		return SearchResult{}, err
	}
	now := s.now()

	query := BuildSearchQuery(profile, now)
	span.SetAttributes(attribute.String("search.query", query))
	docs, err := s.search(ctx, query, opts)
	if err != nil {
		lg.Error("search failed", slog.String("query", query), slog.Any("error", err))
		obs.ObserveOutcome(variant, OutcomeError)
		return SearchResult{}, fmt.Errorf("op=match.search: %w", err)
	}
	if len(docs) == 0 {
		lg.Info("search returned no results", slog.String("query", query))
		obs.ObserveOutcome(variant, OutcomeEmptySearch)
		return SearchResult{Scholarships: []domain.ScholarshipRecommendation{}}, nil
	}
	if len(docs) > opts.SearchCandidateCap {
		docs = docs[:opts.SearchCandidateCap]
	}
	span.SetAttributes(attribute.Int("search.candidates", len(docs)))

	prompt := BuildSearchPrompt(profile, docs, now, opts.SearchMinResults, opts.SearchMaxResults)
	obs.ObservePromptTokens(variant, SearchSystemPrompt, prompt)
	reply, err := s.chat(ctx, domain.ChatRequest{
		SystemPrompt: SearchSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  opts.SearchTemperature,
		MaxTokens:    opts.MaxTokens,
	}, opts)
	if err != nil {
		lg.Error("model call failed", slog.Any("error", err))
		obs.ObserveOutcome(variant, OutcomeError)
		return SearchResult{}, fmt.Errorf("op=match.chat: %w", err)
	}

	records, err := DecodeModelReply(reply, variant)
	if err != nil {
		if opts.SearchStrictness == domain.StrictnessLenient {
			lg.Warn("model reply unreadable; returning empty result", slog.Any("error", err), slog.Int("reply_len", len(reply)))
			obs.ObserveOutcome(variant, OutcomeRecovered)
			return SearchResult{Scholarships: []domain.ScholarshipRecommendation{}}, nil
		}
		obs.ObserveOutcome(variant, OutcomeError)
		return SearchResult{}, fmt.Errorf("op=match.decode: %w", err)
	}

	recs, drops := NormalizeSearchResults(records, docs, now, opts.SearchMaxResults)
	obs.ObserveDrops(variant, drops)
	obs.ObserveScores(variant, searchScores(recs))
	obs.ObserveOutcome(variant, OutcomeOK)
	lg.Info("search match completed",
		slog.Int("candidates", len(docs)),
		slog.Int("records", len(records)),
		slog.Int("emitted", len(recs)),
		slog.Int("dropped", drops.Total()))
	return SearchResult{Scholarships: recs}, nil
}

// MatchCatalog runs the catalog variant: load catalog, prompt, model, parse,
// and optionally persist for the user.
func (s *MatchService) MatchCatalog(ctx context.Context, req CatalogRequest) (CatalogResult, error) {
	const variant = domain.VariantCatalog
	ctx, span := otel.Tracer("usecase.match").Start(ctx, "match.Catalog")
	defer span.End()
	ctx = observability.ContextWithAttrs(ctx, slog.String("variant", string(variant)))
	lg := observability.LoggerFromContext(ctx)
	opts := s.Opts.withDefaults()
	obs := s.observer()

	if err := checkConfig(chatChecker(s.LLM)); err != nil {
		obs.ObserveOutcome(variant, OutcomeError)
		return CatalogResult{}, err
	}
	if s.Catalog == nil {
		obs.ObserveOutcome(variant, OutcomeError)
		return CatalogResult{}, fmt.Errorf("%w: no catalog source configured", domain.ErrConfiguration)
	}
	profile, err := NormalizeProfile(req.Profile)
	if err != nil {
		obs.ObserveOutcome(variant, OutcomeError)
		return CatalogResult{}, err
	}
	now := s.now()
	limit := opts.CatalogMaxResults
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	catalog, err := s.Catalog.ListActive(ctx, domain.CatalogQuery{ActiveOn: now, Limit: opts.CatalogScanLimit})
	if err != nil {
		lg.Error("catalog load failed", slog.Any("error", err))
		obs.ObserveOutcome(variant, OutcomeError)
		return CatalogResult{}, fmt.Errorf("op=match.catalog: %w: %w", domain.ErrCatalogUnavailable, err)
	}
	if len(catalog) == 0 {
		obs.ObserveOutcome(variant, OutcomeEmptyCatalog)
		return CatalogResult{Success: true, Recommendations: []domain.CatalogRecommendation{}, AIPowered: false}, nil
	}
	span.SetAttributes(attribute.Int("catalog.size", len(catalog)))

	prompt := BuildCatalogPrompt(profile, catalog, now, limit)
	obs.ObservePromptTokens(variant, CatalogSystemPrompt, prompt)
	reply, err := s.chat(ctx, domain.ChatRequest{
		SystemPrompt: CatalogSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  opts.CatalogTemperature,
		MaxTokens:    opts.MaxTokens,
	}, opts)
	if err != nil {
		lg.Error("model call failed", slog.Any("error", err))
		obs.ObserveOutcome(variant, OutcomeError)
		return CatalogResult{}, fmt.Errorf("op=match.chat: %w", err)
	}

	records, err := DecodeModelReply(reply, variant)
	if err != nil {
		if opts.CatalogStrictness == domain.StrictnessLenient {
			lg.Warn("model reply unreadable; returning empty result", slog.Any("error", err))
			obs.ObserveOutcome(variant, OutcomeRecovered)
			return CatalogResult{Success: true, Recommendations: []domain.CatalogRecommendation{}, TotalAnalyzed: len(catalog), AIPowered: true}, nil
		}
		lg.Error("model reply unreadable", slog.Any("error", err), slog.Int("reply_len", len(reply)))
		obs.ObserveOutcome(variant, OutcomeError)
		return CatalogResult{}, fmt.Errorf("op=match.decode: %w", err)
	}

	recs, drops := NormalizeCatalogResults(records, catalog, now, limit)
	obs.ObserveDrops(variant, drops)
	obs.ObserveScores(variant, catalogScores(recs))

	if req.UserID != "" && s.Store != nil && len(recs) > 0 {
		if err := s.Store.SaveRecommendations(ctx, req.UserID, recs); err != nil {
			lg.Error("persisting recommendations failed", slog.String("user_id", req.UserID), slog.Any("error", err))
		}
	}
	obs.ObserveOutcome(variant, OutcomeOK)
	lg.Info("catalog match completed",
		slog.Int("catalog", len(catalog)),
		slog.Int("records", len(records)),
		slog.Int("emitted", len(recs)),
		slog.Int("dropped", drops.Total()))
	return CatalogResult{Success: true, Recommendations: recs, TotalAnalyzed: len(catalog), AIPowered: true}, nil
}

func (s *MatchService) search(ctx context.Context, query string, opts Options) ([]domain.CandidateDocument, error) {
	if opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.SearchTimeout)
		defer cancel()
	}
	return s.Search.Search(ctx, query, opts.SearchResultCount)
}

// chat detaches from the caller's cancellation: once the search has returned, an
// aborted request does not cancel the in-flight model call. LLMTimeout still
// bounds it.
func (s *MatchService) chat(ctx context.Context, req domain.ChatRequest, opts Options) (string, error) {
	ctx = context.WithoutCancel(ctx)
	if opts.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.LLMTimeout)
		defer cancel()
	}
	return s.LLM.Chat(ctx, req)
}

// searchChecker and chatChecker keep a nil interface value from turning into a
// non-nil interface holding a nil pointer.
func searchChecker(p domain.SearchProvider) interface{ CheckConfig() error } {
	if p == nil {
		return nil
	}
	return p
}

func chatChecker(c domain.ChatClient) interface{ CheckConfig() error } {
	if c == nil {
		return nil
	}
	return c
}

func searchScores(recs []domain.ScholarshipRecommendation) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.MatchScore
	}
	return out
}

func catalogScores(recs []domain.CatalogRecommendation) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.MatchScore
	}
	return out
}

// IsFormatError reports whether err is a model-reply format failure.
func IsFormatError(err error) bool { return errors.Is(err, domain.ErrFormat) }
