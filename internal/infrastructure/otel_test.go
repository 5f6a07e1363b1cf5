package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestOTelInitialization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}

	providers, err := InitializeOTel(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider, "tracing disabled")
	assert.NotNil(t, providers.Tracer, "no-op tracer is still provided")
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.PrometheusHTTP)

	metrics, err := NewScrapeMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.QueriesTotal.Add(context.Background(), 3,
		metric.WithAttributes(attribute.Int("stock_code", 5)))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ccass_portal_queries_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelUnsupportedExporter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := InitializeOTel(&OTelConfig{TraceExporter: "jaeger", MetricExporter: "none"}, logger)
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{TraceExporter: "none", MetricExporter: "statsd"}, logger)
	assert.Error(t, err)
}

func TestNoopProviders(t *testing.T) {
	providers := NoopProviders()
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Tracer)

	metrics, err := NewScrapeMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		metrics.RowsAppended.Add(context.Background(), 10)
		metrics.QueryDuration.Record(context.Background(), 0.5)
	})

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.NotPanics(t, func() { RecordSpanError(span, assert.AnError) })
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}
