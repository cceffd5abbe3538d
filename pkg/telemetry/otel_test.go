package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

func TestSetupTracing_SinEndpointEsNoop(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{ServiceName: "test"}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_ConEndpoint(t *testing.T) {
	cfg := config.TelemetryConfig{OtlpEndpoint: "http://localhost:4318", ServiceName: "stock-ledger-test"}
	shutdown, err := SetupTracing(context.Background(), cfg, "test")
	require.NoError(t, err, "el exportador HTTP no conecta al crearse")
	assert.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Sin collector el flush falla o se cancela; solo se verifica que no bloquee
	_ = shutdown(ctx)
}
