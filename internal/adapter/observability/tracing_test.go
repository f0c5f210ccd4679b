package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/scholarship-matcher/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	cfg := config.Config{OTLPEndpoint: "localhost:4317", OTELServiceName: "test-service", AppEnv: "prod"}
	// the grpc exporter connects lazily, so construction succeeds without a collector
	shutdown, err := SetupTracing(context.Background(), cfg)
	if err != nil {
		assert.Nil(t, shutdown)
		return
	}
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.1, sampleRatio(config.Config{AppEnv: "prod"}))
	assert.Equal(t, 1.0, sampleRatio(config.Config{AppEnv: "dev"}))
}
