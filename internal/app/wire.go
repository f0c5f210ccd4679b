package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/ai/real"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/catalog/file"
	httpserver "github.com/fairyhunter13/scholarship-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/search/serper"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/service/ratelimiter"
	"github.com/fairyhunter13/scholarship-matcher/internal/usecase"
)

// Runtime holds the wired pipeline and the infrastructure behind it. Pool and
// Redis are nil when not configured.
type Runtime struct {
	Matcher *usecase.MatchService
	Catalog domain.CatalogRepository
	Pool    *pgxpool.Pool
	Redis   *redis.Client

	closers []func()
}

// Close releases infrastructure in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// Limiter returns the shared limiter, or nil without Redis.
func (rt *Runtime) Limiter(cfg config.Config) ratelimiter.Limiter {
	if rt.Redis == nil {
		return nil
	}
	return ratelimiter.NewRedisLuaLimiter(rt.Redis, map[string]ratelimiter.BucketConfig{
		matchBucket: ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin),
	})
}

// Probes returns the readiness probes of the configured infrastructure.
func (rt *Runtime) Probes() map[string]httpserver.Probe {
	var (
		pool Pinger
		rdb  RedisPinger
	)
	if rt.Pool != nil {
		pool = rt.Pool
	}
	if rt.Redis != nil {
		rdb = rt.Redis
	}
	return BuildReadinessProbes(pool, rdb, rt.Catalog)
}

// NewChatClient selects the model provider named by LLM_PROVIDER.
func NewChatClient(cfg config.Config) (domain.ChatClient, func()) {
	if cfg.LLMProvider == config.LLMProviderGemini {
		c := gemini.New(cfg)
		return c, func() { _ = c.Close() }
	}
	return real.New(cfg), func() {}
}

// MatchOptions maps configuration onto pipeline options.
func MatchOptions(cfg config.Config) usecase.Options {
	return usecase.Options{
		SearchResultCount:  cfg.SearchResultCount,
		SearchCandidateCap: cfg.SearchCandidateCap,
		CatalogScanLimit:   cfg.CatalogLimit,
		MaxTokens:          cfg.LLMMaxTokens,
		SearchTimeout:      cfg.SearchTimeout,
		LLMTimeout:         cfg.LLMTimeout,
		SearchStrictness:   domain.Strictness(cfg.SearchStrictness),
		CatalogStrictness:  domain.Strictness(cfg.CatalogStrictness),
	}
}

// Wire connects the configured infrastructure and builds the MatchService.
// Missing credentials are not an error here; they surface per request.
func Wire(ctx context.Context, cfg config.Config) (*Runtime, error) {
	rt := &Runtime{}
	var store domain.RecommendationStore

	switch {
	case cfg.DBURL != "":
		pool, err := postgres.ConnectWithRetry(ctx, cfg.DBURL, cfg.DBConnectMaxElapsed)
		if err != nil {
			return nil, fmt.Errorf("op=app.wire: %w", err)
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			rt.Close()
			return nil, fmt.Errorf("op=app.wire: %w", err)
		}
		rt.Catalog = postgres.NewScholarshipRepo(pool)
		store = postgres.NewRecommendationRepo(pool)
		slog.Info("catalog source: postgres")
	case cfg.CatalogFile != "":
		repo, err := file.Open(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("op=app.wire: %w", err)
		}
		rt.Catalog = repo
		slog.Info("catalog source: file", slog.String("path", cfg.CatalogFile), slog.Int("rows", len(repo.All())))
	default:
		slog.Warn("no catalog source configured; catalog endpoint will report a configuration error")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("op=app.wire: redis url: %w", err)
		}
		rt.Redis = redis.NewClient(opts)
		rt.closers = append(rt.closers, func() { _ = rt.Redis.Close() })
	}

	llm, closeLLM := NewChatClient(cfg)
	rt.closers = append(rt.closers, closeLLM)

	svc := usecase.NewMatchService(serper.New(cfg), llm, rt.Catalog, store, MatchOptions(cfg))
	svc.Observer = observability.NewPipelineObserver(tokencount.NewCounter(), cfg.LLMModel, cfg.LLMPromptTokenBudget)
	rt.Matcher = svc
	return rt, nil
}
