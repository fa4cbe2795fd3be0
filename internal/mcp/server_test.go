package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

const policy = `<html><body>
<h1>Privacy Policy</h1>
<p>We collect your personal information including your name and email address.</p>
<article><p>Cookies help us remember your preferences between visits.</p></article>
</body></html>`

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	store, err := engine.NewStore(engine.DefaultStoreConfig(), engine.DefaultConfig(), engine.WithClock(clock.NewMock()))
	require.NoError(t, err)
	s, err := NewServer(store, &Config{Logger: zap.NewNop()}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)

	s := newTestServer(t)
	assert.NotNil(t, s.MCP())
}

func TestServer_DocumentLifecycle(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	open, err := s.OpenDocument(ctx, OpenDocumentInput{HTML: policy})
	require.NoError(t, err)
	require.NotEmpty(t, open.SessionID)

	hl, err := s.HighlightClause(ctx, HighlightClauseInput{
		SessionID: open.SessionID,
		Quote:     "We collect your personal information including your name",
	})
	require.NoError(t, err)
	assert.True(t, hl.Highlighted)
	assert.Equal(t, "exact", hl.Strategy)
	assert.NotEmpty(t, hl.HighlightID)

	rendered, err := s.RenderDocument(ctx, SessionInput{SessionID: open.SessionID})
	require.NoError(t, err)
	assert.Equal(t, 1, rendered.Highlights)
	assert.Contains(t, rendered.HTML, `data-clausemark-id="`+hl.HighlightID+`"`)

	cleared, err := s.ClearHighlights(ctx, SessionInput{SessionID: open.SessionID})
	require.NoError(t, err)
	assert.Equal(t, 1, cleared.Cleared)

	rendered, err = s.RenderDocument(ctx, SessionInput{SessionID: open.SessionID})
	require.NoError(t, err)
	assert.Zero(t, rendered.Highlights)
	assert.NotContains(t, rendered.HTML, "<mark")

	closed, err := s.CloseDocument(ctx, SessionInput{SessionID: open.SessionID})
	require.NoError(t, err)
	assert.True(t, closed.Closed)

	_, err = s.RenderDocument(ctx, SessionInput{SessionID: open.SessionID})
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)
}

func TestServer_HighlightMiss(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	open, err := s.OpenDocument(ctx, OpenDocumentInput{HTML: policy})
	require.NoError(t, err)

	tests := []struct {
		name  string
		quote string
		code  string
	}{
		{"short quote", "we collect", engine.ErrCodeShortQuery},
		{"absent text", "arbitration clause waiving class action rights", engine.ErrCodeNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.HighlightClause(ctx, HighlightClauseInput{SessionID: open.SessionID, Quote: tt.quote})
			require.NoError(t, err)
			assert.False(t, out.Highlighted)
			assert.Equal(t, tt.code, out.Code)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestServer_Validation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.OpenDocument(ctx, OpenDocumentInput{})
	var verr *validationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "html", verr.field)

	_, err = s.HighlightClause(ctx, HighlightClauseInput{Quote: "anything at all"})
	assert.ErrorIs(t, err, sanitize.ErrInvalidID)

	_, err = s.RenderDocument(ctx, SessionInput{SessionID: "../../etc"})
	assert.ErrorIs(t, err, sanitize.ErrInvalidID)

	_, err = s.ClearHighlights(ctx, SessionInput{SessionID: "missing"})
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)

	_, err = s.CloseDocument(ctx, SessionInput{SessionID: "missing"})
	assert.ErrorIs(t, err, engine.ErrSessionNotFound)

	_, err = s.OpenDocument(ctx, OpenDocumentInput{HTML: policy, RootXPath: "//["})
	assert.Equal(t, engine.ErrCodeInvalidXPath, engine.Code(err))
}

func TestServer_InMemoryTransport(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	ct, st := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, st, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolOpenDocument, ToolHighlightClause, ToolClearHighlights, ToolRenderDocument, ToolCloseDocument,
	}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolOpenDocument,
		Arguments: map[string]any{"html": policy},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	open := structured[OpenDocumentOutput](t, res)
	require.NotEmpty(t, open.SessionID)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name: ToolHighlightClause,
		Arguments: map[string]any{
			"session_id":  open.SessionID,
			"quote":       "Cookies help us remember your preferences",
			"duration_ms": 1000,
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.True(t, structured[HighlightClauseOutput](t, res).Highlighted)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolCloseDocument,
		Arguments: map[string]any{"session_id": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	b, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

func TestServer_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	s := newTestServer(t, WithMeter(provider.Meter("test")))

	handler := instrument(s, ToolOpenDocument, s.OpenDocument)
	ctx := context.Background()
	_, _, err := handler(ctx, nil, OpenDocumentInput{HTML: policy})
	require.NoError(t, err)
	_, _, err = handler(ctx, nil, OpenDocumentInput{})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["clausemark.mcp.tool.invocations_total"])
	assert.Equal(t, int64(1), sums["clausemark.mcp.tool.errors_total"])
	assert.Equal(t, int64(0), sums["clausemark.mcp.tool.active_requests"])
}
