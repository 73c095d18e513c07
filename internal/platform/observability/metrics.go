package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Metrics holds all application metrics
type Metrics struct {
	meter   metric.Meter
	enabled bool

	// HTTP metrics
	HTTPRequests metric.Int64Counter
	HTTPDuration metric.Float64Histogram

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Quote metrics
	QuotesComputed metric.Int64Counter
	LimitsComputed metric.Int64Counter

	// Warmup metrics
	WarmupRuns     metric.Int64Counter
	WarmupDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance. When disabled, instruments are
// backed by a provider without readers so recording is a cheap no-op.
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	var provider *sdkmetric.MeterProvider

	if enabled {
		res, err := resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String("1.0.0"),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}

		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}

		provider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
	} else {
		provider = sdkmetric.NewMeterProvider()
	}

	m := &Metrics{
		meter:   provider.Meter(serviceName),
		enabled: enabled,
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// initMetrics initializes all metric instruments
func (m *Metrics) initMetrics() error {
	var err error

	m.HTTPRequests, err = m.meter.Int64Counter(
		"across.http.requests",
		metric.WithDescription("Total HTTP requests served"),
	)
	if err != nil {
		return err
	}

	m.HTTPDuration, err = m.meter.Float64Histogram(
		"across.http.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"across.cache.hits",
		metric.WithDescription("Total cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"across.cache.misses",
		metric.WithDescription("Total cache misses"),
	)
	if err != nil {
		return err
	}

	m.QuotesComputed, err = m.meter.Int64Counter(
		"across.quotes.computed",
		metric.WithDescription("Fee quotes computed on cache miss"),
	)
	if err != nil {
		return err
	}

	m.LimitsComputed, err = m.meter.Int64Counter(
		"across.limits.computed",
		metric.WithDescription("Deposit limits computed on cache miss"),
	)
	if err != nil {
		return err
	}

	m.WarmupRuns, err = m.meter.Int64Counter(
		"across.warmup.runs",
		metric.WithDescription("Cache warmup provider runs"),
	)
	if err != nil {
		return err
	}

	m.WarmupDuration, err = m.meter.Float64Histogram(
		"across.warmup.duration",
		metric.WithDescription("Cache warmup duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	}

	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("route", route),
	))
}

// RecordCacheHit records a cache hit for a key namespace
func (m *Metrics) RecordCacheHit(ctx context.Context, namespace string) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", namespace)))
}

// RecordCacheMiss records a cache miss for a key namespace
func (m *Metrics) RecordCacheMiss(ctx context.Context, namespace string) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", namespace)))
}

// RecordQuoteComputed records a quote computed on cache miss
func (m *Metrics) RecordQuoteComputed(ctx context.Context, symbol string, originChain, destinationChain uint64) {
	m.QuotesComputed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.Int64("origin_chain", int64(originChain)),
		attribute.Int64("destination_chain", int64(destinationChain)),
	))
}

// RecordLimitsComputed records a limits computation on cache miss
func (m *Metrics) RecordLimitsComputed(ctx context.Context, symbol string, destinationChain uint64) {
	m.LimitsComputed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.Int64("destination_chain", int64(destinationChain)),
	))
}

// RecordWarmup records one warmup provider run
func (m *Metrics) RecordWarmup(ctx context.Context, provider string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("status", status),
	}

	m.WarmupRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.WarmupDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// Handler returns the HTTP handler for Prometheus metrics.
// The OpenTelemetry Prometheus exporter registers with the default registry,
// so the standard promhttp handler serves everything.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}
