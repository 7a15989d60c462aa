package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no-op when unconfigured", func(t *testing.T) {
		t.Parallel()

		tp, err := NewTracerProvider(ctx)
		require.NoError(t, err)
		assert.IsType(t, tracenoop.TracerProvider{}, tp)
	})

	t.Run("no-op when disabled", func(t *testing.T) {
		t.Parallel()

		tp, err := NewTracerProvider(ctx, WithTracingConfig(&TracingConfig{Enabled: false}))
		require.NoError(t, err)
		assert.IsType(t, tracenoop.TracerProvider{}, tp)
	})

	t.Run("sdk provider when enabled", func(t *testing.T) {
		t.Parallel()

		tp, err := NewTracerProvider(ctx,
			WithServiceName("cmdb-test"),
			WithServiceVersion("v0.0.1"),
			WithEndpoint("localhost:4318"),
			WithInsecure(true),
			WithTracingConfig(&TracingConfig{Enabled: true, Sampling: 0.5}),
		)
		require.NoError(t, err)
		sdkTP, ok := tp.(*sdktrace.TracerProvider)
		require.True(t, ok)
		t.Cleanup(func() { _ = sdkTP.Shutdown(ctx) })
	})
}

func TestNewMeterProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no-op when unconfigured", func(t *testing.T) {
		t.Parallel()

		mp, err := NewMeterProvider(ctx)
		require.NoError(t, err)
		assert.IsType(t, metricnoop.MeterProvider{}, mp)
	})

	t.Run("otlp reader", func(t *testing.T) {
		t.Parallel()

		mp, err := NewMeterProvider(ctx,
			WithEndpoint("localhost:4318"),
			WithInsecure(true),
			WithMetricsConfig(&MetricsConfig{Enabled: true}),
		)
		require.NoError(t, err)
		sdkMP, ok := mp.(*sdkmetric.MeterProvider)
		require.True(t, ok)
		t.Cleanup(func() { _ = sdkMP.Shutdown(ctx) })
	})

	t.Run("prometheus reader registers on the given registry", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		mp, err := NewMeterProvider(ctx,
			WithMetricsConfig(&MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus}),
			WithPrometheusRegisterer(registry),
		)
		require.NoError(t, err)
		sdkMP, ok := mp.(*sdkmetric.MeterProvider)
		require.True(t, ok)
		t.Cleanup(func() { _ = sdkMP.Shutdown(ctx) })

		metrics, err := NewMutationMetrics(mp)
		require.NoError(t, err)
		metrics.RecordMutation(ctx, KindEntity, OutcomeSuccess, 0)

		families, err := registry.Gather()
		require.NoError(t, err)

		var names []string
		for _, f := range families {
			names = append(names, f.GetName())
		}
		assert.Contains(t, names, "cmdb_mutation_duration_seconds")
	})
}
