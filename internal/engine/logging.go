package engine

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/logging"
)

// maxLoggedQuote bounds the quote text copied into log entries.
const maxLoggedQuote = 80

// Logger wraps zap.Logger with engine-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("engine")}
}

// Highlighted logs a successful highlight.
func (l *Logger) Highlighted(ctx context.Context, sessionID, quote string, r *Result, d time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("session_id", sessionID),
		zap.String("quote", truncate(quote)),
		zap.String("strategy", r.Strategy),
		zap.String("anchor", string(r.Anchor)),
		zap.String("highlight_id", r.HighlightID),
		zap.Float64("similarity", r.Similarity),
		zap.Duration("duration", d),
	)
	l.logger.Info("clause highlighted", fields...)
}

// Missed logs a quote that was not highlighted.
func (l *Logger) Missed(ctx context.Context, sessionID, quote string, err error, d time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.traceFields(ctx)
	fields = append(fields,
		zap.String("session_id", sessionID),
		zap.String("quote", truncate(quote)),
		zap.String("code", Code(err)),
		zap.Error(err),
		zap.Duration("duration", d),
	)
	if IsMiss(err) {
		l.logger.Info("clause not highlighted", fields...)
		return
	}
	l.logger.Error("highlight failed", fields...)
}

// Recovered logs a panic caught at the boolean API boundary.
func (l *Logger) Recovered(ctx context.Context, sessionID string, v any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Error("recovered panic in highlight",
		append(l.traceFields(ctx), zap.String("session_id", sessionID), zap.Any("panic", v), zap.Stack("stack"))...)
}

// SessionOpened logs a new session.
func (l *Logger) SessionOpened(ctx context.Context, s *Session) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info("session opened",
		append(l.traceFields(ctx), zap.String("session_id", s.ID), zap.String("root_xpath", s.rootExpr))...)
}

// SessionClosed logs a closed session.
func (l *Logger) SessionClosed(ctx context.Context, id string) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info("session closed", append(l.traceFields(ctx), zap.String("session_id", id))...)
}

// traceFields returns trace and request correlation fields.
func (l *Logger) traceFields(ctx context.Context) []zap.Field {
	return logging.ContextFields(ctx)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLoggedQuote {
		return s
	}
	r := []rune(s)
	return string(r[:maxLoggedQuote]) + "..."
}
