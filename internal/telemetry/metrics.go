// Package telemetry provides OpenTelemetry instrumentation for the registry server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// MutationMetricsMeterName is the name used for the mutation metrics meter
	MutationMetricsMeterName = "github.com/stacklok/cmdb-registry-server/mutation"

	// LockMetricsMeterName is the name used for the lock metrics meter
	LockMetricsMeterName = "github.com/stacklok/cmdb-registry-server/lock"
)

// Mutation kinds used as the "kind" attribute
const (
	KindSchema = "schema"
	KindEntity = "entity"
)

// Mutation outcomes used as the "outcome" attribute
const (
	OutcomeSuccess   = "success"
	OutcomeLocked    = "locked"
	OutcomeRejected  = "rejected"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// MutationMetrics holds the OpenTelemetry instruments for schema and entity writes
type MutationMetrics struct {
	mutationDuration metric.Float64Histogram
}

// NewMutationMetrics creates a new MutationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewMutationMetrics(provider metric.MeterProvider) (*MutationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(MutationMetricsMeterName)

	mutationDuration, err := meter.Float64Histogram(
		"cmdb_mutation_duration_seconds",
		metric.WithDescription("Duration of schema and entity writes in seconds, lock wait included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &MutationMetrics{
		mutationDuration: mutationDuration,
	}, nil
}

// RecordMutation records the duration and outcome of one write
func (m *MutationMetrics) RecordMutation(ctx context.Context, kind, outcome string, duration time.Duration) {
	if m == nil || m.mutationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	}

	m.mutationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// LockMetrics holds the OpenTelemetry instruments for the lock coordinator
type LockMetrics struct {
	contentionTotal      metric.Int64Counter
	releaseFailuresTotal metric.Int64Counter
}

// NewLockMetrics creates a new LockMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewLockMetrics(provider metric.MeterProvider) (*LockMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(LockMetricsMeterName)

	contentionTotal, err := meter.Int64Counter(
		"cmdb_lock_contention_total",
		metric.WithDescription("Number of lock acquisitions rejected because the resource was held"),
		metric.WithUnit("{acquisition}"),
	)
	if err != nil {
		return nil, err
	}

	releaseFailuresTotal, err := meter.Int64Counter(
		"cmdb_lock_release_failures_total",
		metric.WithDescription("Number of lock releases that failed"),
		metric.WithUnit("{release}"),
	)
	if err != nil {
		return nil, err
	}

	return &LockMetrics{
		contentionTotal:      contentionTotal,
		releaseFailuresTotal: releaseFailuresTotal,
	}, nil
}

// RecordContention counts a rejected acquisition for the given resource kind
func (m *LockMetrics) RecordContention(ctx context.Context, kind string) {
	if m == nil || m.contentionTotal == nil {
		return
	}
	m.contentionTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordReleaseFailure counts a failed release
func (m *LockMetrics) RecordReleaseFailure(ctx context.Context) {
	if m == nil || m.releaseFailuresTotal == nil {
		return
	}
	m.releaseFailuresTotal.Add(ctx, 1)
}
