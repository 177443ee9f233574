package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/mentiby/tracker-backend"

// Metrics holds the instruments recorded by aggregates, the sweep and the HTTP layer.
type Metrics struct {
	aggregateOps       metric.Int64Counter
	aggregateLatency   metric.Float64Histogram
	aggregateConflicts metric.Int64Counter
	aggregateRetries   metric.Int64Counter

	apiRequests metric.Int64Counter
	apiLatency  metric.Float64Histogram

	reconcileUsers   metric.Int64Counter
	reconcilePurged  metric.Int64Counter
	problemDeletions metric.Int64Counter
}

// NewMetrics registers instruments on mp; a nil mp uses the global provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)
	out := &Metrics{}
	var err error

	if out.aggregateOps, err = m.Int64Counter("tracker.aggregate.operations",
		metric.WithDescription("Aggregate write operations by name and status")); err != nil {
		return nil, err
	}
	if out.aggregateLatency, err = m.Float64Histogram("tracker.aggregate.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Aggregate write latency")); err != nil {
		return nil, err
	}
	if out.aggregateConflicts, err = m.Int64Counter("tracker.aggregate.conflicts"); err != nil {
		return nil, err
	}
	if out.aggregateRetries, err = m.Int64Counter("tracker.aggregate.retries"); err != nil {
		return nil, err
	}
	if out.apiRequests, err = m.Int64Counter("tracker.http.requests"); err != nil {
		return nil, err
	}
	if out.apiLatency, err = m.Float64Histogram("tracker.http.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if out.reconcileUsers, err = m.Int64Counter("tracker.reconcile.users",
		metric.WithDescription("Users reconciled by trigger and outcome")); err != nil {
		return nil, err
	}
	if out.reconcilePurged, err = m.Int64Counter("tracker.reconcile.entries_purged"); err != nil {
		return nil, err
	}
	if out.problemDeletions, err = m.Int64Counter("tracker.catalogue.deletions_applied"); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", strings.TrimSpace(name)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	ctx := context.Background()
	m.aggregateOps.Add(ctx, 1, attrs)
	m.aggregateLatency.Record(ctx, dur.Seconds(), attrs)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", name)))
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", name)))
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", status),
	)
	ctx := context.Background()
	m.apiRequests.Add(ctx, 1, attrs)
	m.apiLatency.Record(ctx, dur.Seconds(), attrs)
}

// ObserveReconcile records one user's reconciliation outcome.
func (m *Metrics) ObserveReconcile(trigger string, changed bool, purged int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.reconcileUsers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.Bool("changed", changed),
	))
	if purged > 0 {
		m.reconcilePurged.Add(ctx, int64(purged), metric.WithAttributes(attribute.String("trigger", trigger)))
	}
}

func (m *Metrics) IncProblemDeletion(status string) {
	if m == nil {
		return
	}
	m.problemDeletions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}
