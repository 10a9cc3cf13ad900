package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// The prometheus exporter registers with the default prometheus registry,
// so only this test may create one.
func TestInitializeOTel_PrometheusMetrics(t *testing.T) {
	cfg := &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableTracing:  false,
		EnableMetrics:  true,
		SampleRatio:    1.0,
	}

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics.RunsTotal)
	require.NotNil(t, metrics.ThresholdCacheHits)
	require.NotNil(t, metrics.WebSocketClients)

	// Recording must not panic, including the error path.
	ctx := context.Background()
	metrics.RecordRun(ctx, "st-001", 120*time.Millisecond, 14, nil)
	metrics.RecordRun(ctx, "st-002", 5*time.Millisecond, 0, errors.New("boom"))
	metrics.RecordCacheStats(ctx, 3, 1)
}

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := &OTelConfig{
		TraceExporter:  "none",
		MetricExporter: "none",
		EnableTracing:  false,
		EnableMetrics:  false,
	}

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := &OTelConfig{
		MetricExporter: "statsd",
		EnableMetrics:  true,
	}
	_, err := InitializeOTel(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd")
}

func TestRecordRun_NilReceiver(t *testing.T) {
	var m *BusinessMetrics
	// Nil metrics are tolerated so telemetry can be disabled wholesale.
	m.RecordRun(context.Background(), "st", time.Second, 1, nil)
	m.RecordCacheStats(context.Background(), 1, 1)
	m.RecordRunActive(context.Background(), 1)
	m.RecordObservationFetch(context.Background(), "tmax", time.Millisecond, 365)
	m.RecordWebSocketClients(context.Background(), 1)
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}
