// Command server starts the scholarship matching HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpserver "github.com/fairyhunter13/scholarship-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/app"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
)

func main() {
	// .env is optional; the real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(observability.SetupLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests for at most SERVER_SHUTDOWN_TIMEOUT.
func run(ctx context.Context, cfg config.Config) error {
	observability.InitMetrics()
	shutdownTracer, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		slog.Error("tracing disabled", slog.Any("error", err))
	}
	if shutdownTracer != nil {
		defer func() { _ = shutdownTracer(context.WithoutCancel(ctx)) }()
	}

	rt, err := app.Wire(ctx, cfg)
	if err != nil {
		return fmt.Errorf("op=server.wire: %w", err)
	}
	defer rt.Close()

	if cfg.SearchAPIKey == "" || cfg.LLMAPIKey == "" {
		slog.Warn("upstream credentials missing; match requests will fail with a configuration error",
			slog.Bool("search_key", cfg.SearchAPIKey != ""), slog.Bool("llm_key", cfg.LLMAPIKey != ""))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, httpserver.NewServer(rt.Matcher, rt.Probes()), rt.Limiter(cfg)),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("llm_provider", cfg.LLMProvider),
			slog.String("version", observability.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("op=server.listen: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("op=server.shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
