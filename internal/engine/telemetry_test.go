package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewMetrics_NilMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.True(t, m.initialized)
}

func TestSessionRecordsMetricsAndSpans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter(InstrumentationName))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	store, err := NewStore(DefaultStoreConfig(), DefaultConfig(),
		WithClock(clock.NewMock()),
		WithMetrics(metrics, nil),
		WithTracer(tp.Tracer(InstrumentationName)))
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := store.Open(ctx, strings.NewReader(policy), "")
	require.NoError(t, err)

	assert.True(t, sess.HighlightClause(ctx, "we collect your personal information", Options{}))
	assert.False(t, sess.HighlightClause(ctx, "short", Options{}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	byOutcome := map[string]int64{}
	var open int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "engine.locate.total":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("outcome"))
					byOutcome[v.AsString()] += dp.Value
				}
			case "engine.sessions.open":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					open += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), byOutcome[OutcomeHighlighted])
	assert.Equal(t, int64(1), byOutcome[OutcomeShortQuery])
	assert.Equal(t, int64(1), open)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "engine.highlight_clause", spans[0].Name())
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "exact", attrs["strategy"].AsString())
	assert.Equal(t, OutcomeHighlighted, attrs["outcome"].AsString())
}
