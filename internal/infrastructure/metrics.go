package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds the application-specific instruments.
type BusinessMetrics struct {
	// HTTP surface
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Compute runs
	RunsTotal        metric.Int64Counter
	RunDuration      metric.Float64Histogram
	RunsActive       metric.Int64UpDownCounter
	RunErrors        metric.Int64Counter
	IndicesComputed  metric.Int64Counter
	SeriesDaysLoaded metric.Int64Counter
	ObservationFetch metric.Float64Histogram

	// Quantile threshold cache
	ThresholdCacheHits   metric.Int64Counter
	ThresholdCacheMisses metric.Int64Counter

	// Progress stream
	WebSocketClients metric.Int64UpDownCounter
}

// CreateBusinessMetrics registers the application instruments on the meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.RunsTotal, err = meter.Int64Counter(
		"compute_runs_total",
		metric.WithDescription("Total number of index computation runs"),
	); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram(
		"compute_run_duration_seconds",
		metric.WithDescription("Index computation run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.RunsActive, err = meter.Int64UpDownCounter(
		"compute_runs_active",
		metric.WithDescription("Number of runs currently executing"),
	); err != nil {
		return nil, err
	}
	if m.RunErrors, err = meter.Int64Counter(
		"compute_run_errors_total",
		metric.WithDescription("Total number of failed runs"),
	); err != nil {
		return nil, err
	}
	if m.IndicesComputed, err = meter.Int64Counter(
		"indices_computed_total",
		metric.WithDescription("Total number of index series computed"),
	); err != nil {
		return nil, err
	}
	if m.SeriesDaysLoaded, err = meter.Int64Counter(
		"series_days_loaded_total",
		metric.WithDescription("Total observation days loaded into sessions"),
	); err != nil {
		return nil, err
	}
	if m.ObservationFetch, err = meter.Float64Histogram(
		"observation_fetch_duration_seconds",
		metric.WithDescription("Duration of observation series fetches"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ThresholdCacheHits, err = meter.Int64Counter(
		"threshold_cache_hits_total",
		metric.WithDescription("Quantile threshold cache hits"),
	); err != nil {
		return nil, err
	}
	if m.ThresholdCacheMisses, err = meter.Int64Counter(
		"threshold_cache_misses_total",
		metric.WithDescription("Quantile threshold cache misses"),
	); err != nil {
		return nil, err
	}

	if m.WebSocketClients, err = meter.Int64UpDownCounter(
		"websocket_clients_active",
		metric.WithDescription("Connected progress-stream clients"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records the outcome of one computation run.
func (m *BusinessMetrics) RecordRun(ctx context.Context, station string, duration time.Duration, indices int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("station", station))

	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
	if indices > 0 {
		m.IndicesComputed.Add(ctx, int64(indices), attrs)
	}
	if err != nil {
		m.RunErrors.Add(ctx, 1, attrs)
	}
}

// RecordCacheStats publishes cache hit/miss deltas.
func (m *BusinessMetrics) RecordCacheStats(ctx context.Context, hitDelta, missDelta int64) {
	if m == nil {
		return
	}
	if hitDelta > 0 {
		m.ThresholdCacheHits.Add(ctx, hitDelta)
	}
	if missDelta > 0 {
		m.ThresholdCacheMisses.Add(ctx, missDelta)
	}
}

// RecordRunActive adjusts the in-flight run gauge.
func (m *BusinessMetrics) RecordRunActive(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.RunsActive.Add(ctx, delta)
}

// RecordObservationFetch records one series fetch and the days it loaded.
func (m *BusinessMetrics) RecordObservationFetch(ctx context.Context, variable string, duration time.Duration, days int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("variable", variable))
	m.ObservationFetch.Record(ctx, duration.Seconds(), attrs)
	if days > 0 {
		m.SeriesDaysLoaded.Add(ctx, days, attrs)
	}
}

// RecordWebSocketClients adjusts the connected progress-stream client gauge.
func (m *BusinessMetrics) RecordWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}
