package catalog

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const metricNamespace = "github.com/hanko-field/storefront/internal/catalog"

type clientMetrics struct {
	latency         metric.Float64Histogram
	latencyEnabled  bool
	memoHits        metric.Int64Counter
	memoHitsEnabled bool
}

func newClientMetrics(meter metric.Meter, logger *zap.Logger) *clientMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}

	latency, latencyErr := meter.Float64Histogram(
		"catalog.request.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for catalog API requests"),
	)
	if latencyErr != nil {
		logger.Warn("catalog: unable to register latency metric", zap.Error(latencyErr))
	}

	memoHits, memoErr := meter.Int64Counter(
		"catalog.product.memo_hits",
		metric.WithDescription("Count of product lookups served from the in-process memo"),
	)
	if memoErr != nil {
		logger.Warn("catalog: unable to register memo hit metric", zap.Error(memoErr))
	}

	return &clientMetrics{
		latency:         latency,
		latencyEnabled:  latencyErr == nil,
		memoHits:        memoHits,
		memoHitsEnabled: memoErr == nil,
	}
}

func (m *clientMetrics) recordLatency(ctx context.Context, op string, status int, d time.Duration) {
	if m == nil || !m.latencyEnabled {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("catalog.operation", op),
		attribute.String("http.status_code", strconv.Itoa(status)),
	}
	m.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))
}

func (m *clientMetrics) recordMemoHit(ctx context.Context) {
	if m == nil || !m.memoHitsEnabled {
		return
	}
	m.memoHits.Add(ctx, 1)
}
