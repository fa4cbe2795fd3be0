package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/logging"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

// validationError is a bad tool argument.
type validationError struct {
	field string
	msg   string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.msg)
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &validationError{field: field, msg: "is required"}
	}
	return nil
}

// Tool names.
const (
	ToolOpenDocument    = "open_document"
	ToolHighlightClause = "highlight_clause"
	ToolClearHighlights = "clear_highlights"
	ToolRenderDocument  = "render_document"
	ToolCloseDocument   = "close_document"
)

// OpenDocumentInput is the open_document argument.
type OpenDocumentInput struct {
	HTML      string `json:"html" jsonschema:"the HTML document to open"`
	RootXPath string `json:"root_xpath,omitempty" jsonschema:"XPath of the content root, defaults to the configured root"`
}

// OpenDocumentOutput is the open_document result.
type OpenDocumentOutput struct {
	SessionID string `json:"session_id"`
}

// HighlightClauseInput is the highlight_clause argument.
type HighlightClauseInput struct {
	SessionID      string `json:"session_id" jsonschema:"session returned by open_document"`
	Quote          string `json:"quote" jsonschema:"text quoted from the document, fuzzy matched"`
	ScrollIntoView *bool  `json:"scroll_into_view,omitempty" jsonschema:"scroll to the highlight, default true"`
	DurationMillis int    `json:"duration_ms,omitempty" jsonschema:"highlight lifetime in milliseconds, default 5000"`
}

// HighlightClauseOutput is the highlight_clause result. A miss is
// Highlighted=false with Code and Reason set.
type HighlightClauseOutput struct {
	Highlighted bool    `json:"highlighted"`
	HighlightID string  `json:"highlight_id,omitempty"`
	Strategy    string  `json:"strategy,omitempty"`
	MatchedText string  `json:"matched_text,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
	Path        string  `json:"path,omitempty"`
	Code        string  `json:"code,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// SessionInput addresses one session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"session returned by open_document"`
}

// ClearHighlightsOutput is the clear_highlights result.
type ClearHighlightsOutput struct {
	Cleared int `json:"cleared"`
}

// RenderDocumentOutput is the render_document result.
type RenderDocumentOutput struct {
	HTML       string `json:"html"`
	Highlights int    `json:"highlights"`
}

// CloseDocumentOutput is the close_document result.
type CloseDocumentOutput struct {
	Closed bool `json:"closed"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolOpenDocument,
		Description: "Open an HTML document for highlighting. Returns a session_id used by the other tools.",
	}, instrument(s, ToolOpenDocument, s.OpenDocument))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolHighlightClause,
		Description: "Highlight the passage of an open document that best matches a quote. Tolerates paraphrase, truncation and whitespace differences.",
	}, instrument(s, ToolHighlightClause, s.HighlightClause))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolClearHighlights,
		Description: "Remove every highlight from an open document.",
	}, instrument(s, ToolClearHighlights, s.ClearHighlights))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolRenderDocument,
		Description: "Return the current HTML of an open document, including live highlight markers.",
	}, instrument(s, ToolRenderDocument, s.RenderDocument))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolCloseDocument,
		Description: "Close an open document and release its highlights.",
	}, instrument(s, ToolCloseDocument, s.CloseDocument))
}

type handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// instrument adapts a handler to the SDK signature and records metrics.
func instrument[In, Out any](s *Server, tool string, h handler[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx = logging.WithClient(ctx, "mcp")
		s.metrics.IncrementActive(ctx, tool)
		defer s.metrics.DecrementActive(ctx, tool)

		start := time.Now()
		out, err := h(ctx, in)
		s.metrics.RecordInvocation(ctx, tool, time.Since(start), err)
		if err != nil {
			s.logger.Debug("tool failed",
				zap.String("tool", tool),
				zap.String("code", engine.Code(err)),
				zap.Error(err))
			var zero Out
			return nil, zero, err
		}
		return nil, out, nil
	}
}

// OpenDocument opens a session on the given HTML.
func (s *Server) OpenDocument(ctx context.Context, in OpenDocumentInput) (OpenDocumentOutput, error) {
	if err := required("html", in.HTML); err != nil {
		return OpenDocumentOutput{}, err
	}
	sess, err := s.store.Open(ctx, strings.NewReader(in.HTML), in.RootXPath)
	if err != nil {
		return OpenDocumentOutput{}, fmt.Errorf("open document: %w", err)
	}
	return OpenDocumentOutput{SessionID: sess.ID}, nil
}

// HighlightClause highlights quote in a session.
func (s *Server) HighlightClause(ctx context.Context, in HighlightClauseInput) (HighlightClauseOutput, error) {
	if err := sanitize.ValidateID(in.SessionID, "session_id"); err != nil {
		return HighlightClauseOutput{}, err
	}
	sess, err := s.store.Get(in.SessionID)
	if err != nil {
		return HighlightClauseOutput{}, err
	}
	res, err := sess.Highlight(ctx, in.Quote, engine.Options{
		ScrollIntoView: in.ScrollIntoView,
		DurationMillis: in.DurationMillis,
	})
	if engine.IsMiss(err) {
		return HighlightClauseOutput{Code: engine.Code(err), Reason: err.Error()}, nil
	}
	if err != nil {
		return HighlightClauseOutput{}, err
	}
	return HighlightClauseOutput{
		Highlighted: true,
		HighlightID: res.HighlightID,
		Strategy:    res.Strategy,
		MatchedText: res.MatchedText,
		Similarity:  res.Similarity,
		Path:        res.Path,
	}, nil
}

// ClearHighlights removes every highlight in a session.
func (s *Server) ClearHighlights(ctx context.Context, in SessionInput) (ClearHighlightsOutput, error) {
	if err := sanitize.ValidateID(in.SessionID, "session_id"); err != nil {
		return ClearHighlightsOutput{}, err
	}
	sess, err := s.store.Get(in.SessionID)
	if err != nil {
		return ClearHighlightsOutput{}, err
	}
	n := len(sess.Highlights())
	sess.ClearAllHighlights(ctx)
	return ClearHighlightsOutput{Cleared: n}, nil
}

// RenderDocument returns a session's current HTML.
func (s *Server) RenderDocument(_ context.Context, in SessionInput) (RenderDocumentOutput, error) {
	if err := sanitize.ValidateID(in.SessionID, "session_id"); err != nil {
		return RenderDocumentOutput{}, err
	}
	sess, err := s.store.Get(in.SessionID)
	if err != nil {
		return RenderDocumentOutput{}, err
	}
	var sb strings.Builder
	if err := sess.Render(&sb); err != nil {
		return RenderDocumentOutput{}, fmt.Errorf("render document: %w", err)
	}
	return RenderDocumentOutput{HTML: sb.String(), Highlights: len(sess.Highlights())}, nil
}

// CloseDocument closes a session.
func (s *Server) CloseDocument(ctx context.Context, in SessionInput) (CloseDocumentOutput, error) {
	if err := sanitize.ValidateID(in.SessionID, "session_id"); err != nil {
		return CloseDocumentOutput{}, err
	}
	if err := s.store.Close(ctx, in.SessionID); err != nil {
		return CloseDocumentOutput{}, err
	}
	return CloseDocumentOutput{Closed: true}, nil
}
