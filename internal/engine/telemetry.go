package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/clausemark/internal/engine"
)

// Locate outcomes.
const (
	OutcomeHighlighted = "highlighted"
	OutcomeShortQuery  = "short_query"
	OutcomeNoMatch     = "no_match"
	OutcomeRace        = "structural_race"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Metrics provides OpenTelemetry metrics for the engine.
type Metrics struct {
	locateTotal    metric.Int64Counter
	locateDuration metric.Float64Histogram
	similarity     metric.Float64Histogram
	sessionsOpen   metric.Int64UpDownCounter

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

	m.locateTotal, err = meter.Int64Counter(
		"engine.locate.total",
		metric.WithDescription("Highlight requests by winning strategy and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.locateDuration, err = meter.Float64Histogram(
		"engine.locate.duration",
		metric.WithDescription("Time to flatten, match, anchor and highlight"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1),
	)
	if err != nil {
		return nil, err
	}

	m.similarity, err = meter.Float64Histogram(
		"engine.match.similarity",
		metric.WithDescription("Word-level similarity of matched text to the quote"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 0.75, 0.9, 1),
	)
	if err != nil {
		return nil, err
	}

	m.sessionsOpen, err = meter.Int64UpDownCounter(
		"engine.sessions.open",
		metric.WithDescription("Number of open document sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordLocate records one highlight request.
func (m *Metrics) RecordLocate(ctx context.Context, strategy, outcome string, similarity float64, d time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	)
	m.locateTotal.Add(ctx, 1, attrs)
	m.locateDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == OutcomeHighlighted {
		m.similarity.Record(ctx, similarity, metric.WithAttributes(attribute.String("strategy", strategy)))
	}
}

// RecordSessionOpened records a session being opened.
func (m *Metrics) RecordSessionOpened(ctx context.Context) {
	if m == nil || !m.initialized {
		return
	}
	m.sessionsOpen.Add(ctx, 1)
}

// RecordSessionClosed records a session being closed.
func (m *Metrics) RecordSessionClosed(ctx context.Context) {
	if m == nil || !m.initialized {
		return
	}
	m.sessionsOpen.Add(ctx, -1)
}
