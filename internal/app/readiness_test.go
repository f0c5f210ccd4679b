package app

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/catalog/file"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestBuildReadinessProbes_Empty(t *testing.T) {
	assert.Empty(t, BuildReadinessProbes(nil, nil, nil))
}

func TestBuildReadinessProbes_DBAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dbErr := errors.New("refused")
	probes := BuildReadinessProbes(pingerFunc(func(context.Context) error { return dbErr }), rdb, file.NewRepo(nil))
	require.Len(t, probes, 2)
	assert.ErrorIs(t, probes["db"](context.Background()), dbErr)
	assert.NoError(t, probes["redis"](context.Background()))

	mr.Close()
	assert.Error(t, probes["redis"](context.Background()))
}

func TestBuildReadinessProbes_FileCatalog(t *testing.T) {
	probes := BuildReadinessProbes(nil, nil, file.NewRepo(nil))
	require.Contains(t, probes, "catalog")
	assert.NoError(t, probes["catalog"](context.Background()))
}
