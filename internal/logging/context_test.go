package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func fieldMap(ctx context.Context) map[string]string {
	out := map[string]string{}
	for _, f := range ContextFields(ctx) {
		if f.Type == zapcore.StringType {
			out[f.Key] = f.String
		}
	}
	return out
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithClient(ctx, "mcp")
	ctx = WithSessionID(ctx, "sess_4f1c2a")
	ctx = WithRequestID(ctx, "req-123")
	fields := fieldMap(ctx)
	assert.Equal(t, "mcp", fields["client"])
	assert.Equal(t, "sess_4f1c2a", fields["session.id"])
	assert.Equal(t, "req-123", fields["request.id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestContextFields_Trace(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := fieldMap(ctx)
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, sc.SpanID().String(), fields["span_id"])
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"sess_0f8e2b6c-1d2e-4f5a-9b8c-7d6e5f4a3b2c", false},
		{"req-1", false},
		{"", true},
		{"has space", true},
		{"semi;colon", true},
		{"\xff\xfe", true},
		{strings.Repeat("a", maxIDLen+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID(tt.id, "id")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithSessionID_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { WithSessionID(context.Background(), "") })
	assert.Panics(t, func() { WithRequestID(context.Background(), "a b") })
	assert.Panics(t, func() { WithClient(context.Background(), "http/1") })
}
