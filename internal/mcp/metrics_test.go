package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", &validationError{field: "html", msg: "is required"}, "validation_error"},
		{"bad id", fmt.Errorf("%w: session_id is required", sanitize.ErrInvalidID), "validation_error"},
		{"not found", engine.ErrSessionNotFound, "not_found"},
		{"closed", fmt.Errorf("get: %w", engine.ErrSessionClosed), "not_found"},
		{"rate limited", engine.ErrRateLimited, "throttled"},
		{"too many sessions", engine.ErrTooManySessions, "throttled"},
		{"empty document", engine.ErrEmptyDocument, "bad_document"},
		{"too large", engine.ErrDocumentTooLarge, "bad_document"},
		{"bad xpath", fmt.Errorf("open: %w", dom.ErrInvalidXPath), "bad_document"},
		{"other", errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeError(tt.err))
		})
	}
}

func TestMetrics_NilInstruments(t *testing.T) {
	m := &Metrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.IncrementActive(ctx, ToolOpenDocument)
		m.RecordInvocation(ctx, ToolOpenDocument, time.Millisecond, errors.New("x"))
		m.DecrementActive(ctx, ToolOpenDocument)
	})
}

func TestNewMetrics_Defaults(t *testing.T) {
	m := NewMetrics(nil, nil)
	assert.NotNil(t, m.invocations)
	assert.NotNil(t, m.duration)
}
