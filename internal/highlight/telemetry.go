package highlight

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/clausemark/internal/highlight"
)

// Removal reasons recorded on metrics and logs.
const (
	ReasonExpired = "expired"
	ReasonRemoved = "removed"
	ReasonCleared = "cleared"
)

// Metrics provides OpenTelemetry metrics for highlight lifecycles.
type Metrics struct {
	createdTotal     metric.Int64Counter
	removedTotal     metric.Int64Counter
	wrapFailureTotal metric.Int64Counter
	activeCount      metric.Int64UpDownCounter
	lifetime         metric.Float64Histogram

	initialized bool
}

// NewMetrics creates a new Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.createdTotal, err = meter.Int64Counter(
		"highlight.created.total",
		metric.WithDescription("Total number of highlights created"),
		metric.WithUnit("{highlight}"),
	)
	if err != nil {
		return nil, err
	}

	m.removedTotal, err = meter.Int64Counter(
		"highlight.removed.total",
		metric.WithDescription("Total number of highlights fully removed"),
		metric.WithUnit("{highlight}"),
	)
	if err != nil {
		return nil, err
	}

	m.wrapFailureTotal, err = meter.Int64Counter(
		"highlight.wrap_failure.total",
		metric.WithDescription("Single-node wraps that fell back to styling the parent element"),
		metric.WithUnit("{highlight}"),
	)
	if err != nil {
		return nil, err
	}

	m.activeCount, err = meter.Int64UpDownCounter(
		"highlight.active.count",
		metric.WithDescription("Number of highlights currently registered"),
		metric.WithUnit("{highlight}"),
	)
	if err != nil {
		return nil, err
	}

	m.lifetime, err = meter.Float64Histogram(
		"highlight.lifetime.seconds",
		metric.WithDescription("Time from creation to removal"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordCreated records a highlight creation.
func (m *Metrics) RecordCreated(ctx context.Context, h *Highlight) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", string(h.Kind)))
	m.createdTotal.Add(ctx, 1, attrs)
	m.activeCount.Add(ctx, 1, attrs)
	if h.WrapFailed {
		m.wrapFailureTotal.Add(ctx, 1)
	}
}

// RecordRemoved records a highlight reaching the removed state.
func (m *Metrics) RecordRemoved(ctx context.Context, h *Highlight, reason string, lifetime time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	kind := attribute.String("kind", string(h.Kind))
	m.removedTotal.Add(ctx, 1, metric.WithAttributes(kind, attribute.String("reason", reason)))
	m.activeCount.Add(ctx, -1, metric.WithAttributes(kind))
	m.lifetime.Record(ctx, lifetime.Seconds(), metric.WithAttributes(kind))
}
