package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/scholarship-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPinger is satisfied by every go-redis client.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// BuildReadinessProbes returns a probe per configured dependency. Unconfigured
// dependencies get no probe; the catalog file is checked by a zero-row read.
func BuildReadinessProbes(pool Pinger, rdb RedisPinger, catalog domain.CatalogRepository) map[string]httpserver.Probe {
	probes := map[string]httpserver.Probe{}
	if pool != nil {
		probes["db"] = func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			return nil
		}
	}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			return nil
		}
	}
	if catalog != nil && pool == nil {
		probes["catalog"] = func(ctx context.Context) error {
			_, err := catalog.ListActive(ctx, domain.CatalogQuery{Limit: 1})
			return err
		}
	}
	return probes
}
