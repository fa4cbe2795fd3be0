package highlight

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/logging"
)

// Logger wraps zap.Logger with highlight-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("highlight")}
}

// Created logs a highlight creation.
func (l *Logger) Created(ctx context.Context, h *Highlight) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, h)
	fields = append(fields,
		zap.String("path", h.Path),
		zap.Duration("ttl", h.TTL),
	)
	l.logger.Info("highlight created", fields...)
}

// WrapFailure logs a single-node wrap that fell back to the parent.
func (l *Logger) WrapFailure(ctx context.Context, id string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Warn("wrap failed, styling parent element",
		append(l.traceFields(ctx), zap.String("highlight_id", id), zap.Error(err))...)
}

// Fading logs the start of the fade phase.
func (l *Logger) Fading(ctx context.Context, h *Highlight, reason string) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Debug("highlight fading", append(l.baseFields(ctx, h), zap.String("reason", reason))...)
}

// Removed logs a highlight leaving the registry.
func (l *Logger) Removed(ctx context.Context, h *Highlight, reason string, lifetime time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, h)
	fields = append(fields,
		zap.String("reason", reason),
		zap.Duration("lifetime", lifetime),
	)
	l.logger.Info("highlight removed", fields...)
}

// RollbackFailed logs a removal whose structural rollback could not run,
// typically because unrelated code detached the marker.
func (l *Logger) RollbackFailed(ctx context.Context, h *Highlight, err error) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Warn("highlight rollback failed", append(l.baseFields(ctx, h), zap.Error(err))...)
}

func (l *Logger) baseFields(ctx context.Context, h *Highlight) []zap.Field {
	fields := l.traceFields(ctx)
	return append(fields,
		zap.String("highlight_id", h.ID),
		zap.String("kind", string(h.Kind)),
		zap.String("state", string(h.State)),
	)
}

// traceFields returns trace and request correlation fields.
func (l *Logger) traceFields(ctx context.Context) []zap.Field {
	return logging.ContextFields(ctx)
}
