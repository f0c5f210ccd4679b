// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// LLM provider identifiers accepted by LLM_PROVIDER.
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

// Config holds all application configuration parsed from environment variables.
// Credentials have no defaults: a missing key surfaces as a configuration error
// on the request that needs it.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	SearchAPIKey       string        `env:"SEARCH_API_KEY"`
	SearchBaseURL      string        `env:"SEARCH_BASE_URL" envDefault:"https://google.serper.dev"`
	SearchResultCount  int           `env:"SEARCH_RESULT_COUNT" envDefault:"20"`
	SearchCandidateCap int           `env:"SEARCH_CANDIDATE_CAP" envDefault:"15"`
	SearchTimeout      time.Duration `env:"SEARCH_TIMEOUT" envDefault:"15s"`

	LLMProvider  string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMBaseURL   string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMMaxTokens int           `env:"LLM_MAX_TOKENS" envDefault:"3000"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	// LLMPromptTokenBudget only triggers a warning log when exceeded; 0 disables it.
	LLMPromptTokenBudget int `env:"LLM_PROMPT_TOKEN_BUDGET" envDefault:"12000"`

	// DBURL enables the Postgres catalog and recommendation store when set.
	DBURL               string        `env:"DB_URL"`
	DBConnectMaxElapsed time.Duration `env:"DB_CONNECT_MAX_ELAPSED" envDefault:"30s"`
	// CatalogFile is a YAML catalog used when DBURL is empty.
	CatalogFile  string `env:"CATALOG_FILE"`
	CatalogLimit int    `env:"CATALOG_LIMIT" envDefault:"50"`

	// Reply handling per variant: lenient or strict.
	SearchStrictness  string `env:"SEARCH_STRICTNESS" envDefault:"lenient"`
	CatalogStrictness string `env:"CATALOG_STRICTNESS" envDefault:"strict"`

	// RedisURL switches rate limiting to a shared token bucket when set.
	RedisURL        string `env:"REDIS_URL"`
	RateLimitPerMin int    `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`

	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"scholarship-matcher"`

	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.SearchCandidateCap <= 0 || cfg.SearchResultCount <= 0 {
		return Config{}, fmt.Errorf("op=config.Load: search counts must be positive")
	}
	switch strings.ToLower(cfg.LLMProvider) {
	case LLMProviderOpenAI, LLMProviderGemini:
		cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	default:
		return Config{}, fmt.Errorf("op=config.Load: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	for _, v := range []*string{&cfg.SearchStrictness, &cfg.CatalogStrictness} {
		*v = strings.ToLower(*v)
		if *v != "lenient" && *v != "strict" {
			return Config{}, fmt.Errorf("op=config.Load: strictness must be lenient or strict, got %q", *v)
		}
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// RequestTimeout is the per-request deadline applied by the router. It has to
// outlive both upstream calls of a single pipeline run.
func (c Config) RequestTimeout() time.Duration {
	return c.SearchTimeout + c.LLMTimeout + 5*time.Second
}
