package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/orderdesk/internal/config"
)

func baseConfig() config.Observability {
	return config.Observability{
		ServiceName:     "orderdesk-test",
		Environment:     "test",
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}
}

func TestPrometheusHandlerExposesInstruments(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableMetrics = true

	mgr, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	require.True(t, mgr.MetricsEnabled())
	require.NotNil(t, mgr.MetricsHandler())
	assert.False(t, mgr.TracingEnabled())

	counter, err := mgr.MeterProvider().Meter("test").Int64Counter("orders.probe")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orders_probe_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestManagersUseSeparateRegistries(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableMetrics = true

	first, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	second, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotSame(t, first.registry, second.registry)
}

func TestDisabledProviders(t *testing.T) {
	mgr, err := New(context.Background(), baseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
	assert.Nil(t, mgr.MetricsHandler())
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestUnsupportedExportersAreSkipped(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableMetrics = true
	cfg.MetricsExporter = "carrier-pigeon"
	cfg.EnableTracing = true
	cfg.TraceExporter = "smoke-signal"

	mgr, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
}

func TestStdoutTracing(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "stdout"

	mgr, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mgr.TracingEnabled())
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestOTLPRequiresEndpoint(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "otlp"

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "OBS_OTLP_ENDPOINT")
}
