// Package engine ties flattening, matching, anchoring and the highlight
// lifecycle together behind the highlightClause and clearAllHighlights
// operations, one Session per document.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/clausemark/internal/anchor"
	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/flatten"
	"github.com/fyrsmithlabs/clausemark/internal/highlight"
	"github.com/fyrsmithlabs/clausemark/internal/match"
)

// DefaultDurationMillis is the highlight lifetime used when Options leaves
// DurationMillis unset.
const DefaultDurationMillis = 5000

// Options are the caller-facing highlight options.
type Options struct {
	// ScrollIntoView defaults to true when nil.
	ScrollIntoView *bool `json:"scroll_into_view,omitempty"`
	// DurationMillis defaults to DefaultDurationMillis when not positive.
	DurationMillis int `json:"duration_ms,omitempty"`
}

func (o Options) scroll() bool {
	return o.ScrollIntoView == nil || *o.ScrollIntoView
}

func (o Options) duration() time.Duration {
	ms := o.DurationMillis
	if ms <= 0 {
		ms = DefaultDurationMillis
	}
	return time.Duration(ms) * time.Millisecond
}

// Result describes a successful highlight.
type Result struct {
	HighlightID string      `json:"highlight_id"`
	Strategy    string      `json:"strategy"`
	MatchedText string      `json:"matched_text"`
	Similarity  float64     `json:"similarity"`
	Anchor      anchor.Kind `json:"anchor"`
	WrapFailed  bool        `json:"wrap_failed,omitempty"`
	Path        string      `json:"path"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Session owns one document and its highlights. Its mutex stands in for the
// host's UI thread: every public method and every highlight timer runs
// under it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	doc       *html.Node
	rootExpr  string
	resolver  dom.StyleResolver
	cascade   *match.Cascade
	anchorer  *anchor.Anchorer
	lifecycle *highlight.Lifecycle
	limiter   *rate.Limiter
	clock     clock.Clock
	zap       *zap.Logger
	logger    *Logger
	metrics   *Metrics
	tracer    trace.Tracer
	closed    bool
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	id               string
	clock            clock.Clock
	scroller         highlight.Scroller
	finder           match.NativeFinder
	resolver         dom.StyleResolver
	logger           *zap.Logger
	metrics          *Metrics
	highlightMetrics *highlight.Metrics
	tracer           trace.Tracer
	limiter          *rate.Limiter
}

// WithClock sets the clock for highlight timers.
func WithClock(c clock.Clock) SessionOption {
	return func(o *sessionOptions) { o.clock = c }
}

// WithScroller sets the scroll backend.
func WithScroller(s highlight.Scroller) SessionOption {
	return func(o *sessionOptions) { o.scroller = s }
}

// WithFinder replaces the NativeSearch backend.
func WithFinder(f match.NativeFinder) SessionOption {
	return func(o *sessionOptions) { o.finder = f }
}

// WithResolver replaces the visibility resolver.
func WithResolver(r dom.StyleResolver) SessionOption {
	return func(o *sessionOptions) { o.resolver = r }
}

// WithLogger sets the zap logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = l }
}

// WithMetrics sets the engine and highlight metrics recorders.
func WithMetrics(m *Metrics, hm *highlight.Metrics) SessionOption {
	return func(o *sessionOptions) {
		o.metrics = m
		o.highlightMetrics = hm
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) SessionOption {
	return func(o *sessionOptions) { o.tracer = t }
}

// WithLimiter rate limits Highlight calls.
func WithLimiter(l *rate.Limiter) SessionOption {
	return func(o *sessionOptions) { o.limiter = l }
}

func withID(id string) SessionOption {
	return func(o *sessionOptions) { o.id = id }
}

// NewSession builds the pipeline for doc.
func NewSession(doc *html.Node, cfg Config, opts ...SessionOption) (*Session, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := sessionOptions{
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = dom.NewInlineStyleResolver(cfg.HiddenClasses)
	}
	if o.finder == nil {
		o.finder = &match.TreeFinder{Resolver: o.resolver}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(InstrumentationName)
	}
	if o.id == "" {
		o.id = newSessionID()
	}

	s := &Session{
		ID:       o.id,
		doc:      doc,
		rootExpr: cfg.RootXPath,
		resolver: o.resolver,
		limiter:  o.limiter,
		clock:    o.clock,
		zap:      o.logger,
		logger:   NewLogger(o.logger),
		metrics:  o.metrics,
		tracer:   o.tracer,
	}
	s.CreatedAt = o.clock.Now()

	var err error
	if _, err = dom.SelectRoot(doc, cfg.RootXPath); err != nil {
		return nil, err
	}
	s.cascade, err = match.NewCascade(cfg.Match,
		match.WithFinder(o.finder),
		match.WithLogger(o.logger.Named("match")))
	if err != nil {
		return nil, err
	}
	s.anchorer, err = anchor.New(cfg.Anchor)
	if err != nil {
		return nil, err
	}

	hopts := []highlight.Option{
		highlight.WithClock(o.clock),
		highlight.WithLogger(o.logger),
		highlight.WithMetrics(o.highlightMetrics),
	}
	if o.scroller != nil {
		hopts = append(hopts, highlight.WithScroller(o.scroller))
	}
	s.lifecycle, err = highlight.NewLifecycle(cfg.Highlight, highlight.NewMutexDispatcher(&s.mu), hopts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// HighlightClause highlights quote and reports whether it succeeded. It
// never panics and never returns an error: every failure is a false.
func (s *Session) HighlightClause(ctx context.Context, quote string, opts Options) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			s.logger.Recovered(ctx, s.ID, v)
			ok = false
		}
	}()
	_, err := s.Highlight(ctx, quote, opts)
	return err == nil
}

// Highlight locates quote in the content root, anchors it and creates a
// highlight. Misses return ErrShortQuery, ErrNoMatch or ErrStructuralRace.
func (s *Session) Highlight(ctx context.Context, quote string, opts Options) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "engine.highlight_clause",
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.Int("quote.length", len(quote)),
		))
	defer span.End()

	start := time.Now()
	res, strategy, err := s.highlight(ctx, quote, opts)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.RecordLocate(ctx, strategy, Outcome(err), 0, elapsed)
		s.logger.Missed(ctx, s.ID, quote, err, elapsed)
		span.SetAttributes(attribute.String("outcome", Outcome(err)))
		if !IsMiss(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	s.metrics.RecordLocate(ctx, res.Strategy, OutcomeHighlighted, res.Similarity, elapsed)
	s.logger.Highlighted(ctx, s.ID, quote, res, elapsed)
	span.SetAttributes(
		attribute.String("outcome", OutcomeHighlighted),
		attribute.String("strategy", res.Strategy),
		attribute.String("anchor", string(res.Anchor)),
	)
	return res, nil
}

func (s *Session) highlight(ctx context.Context, quote string, opts Options) (*Result, string, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, "", ErrRateLimited
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, "", ErrSessionClosed
	}

	ix, err := s.index()
	if err != nil {
		return nil, "", err
	}
	m, err := s.cascade.Locate(ctx, ix, quote)
	if err != nil {
		return nil, "", err
	}
	strategy := m.Strategy.String()

	a, err := s.anchorer.Anchor(ix, m)
	if err != nil {
		if errors.Is(err, anchor.ErrUnanchorable) {
			return nil, strategy, fmt.Errorf("%w: %w", ErrStructuralRace, err)
		}
		return nil, strategy, err
	}

	h, err := s.lifecycle.Create(ctx, a, opts.duration(), opts.scroll())
	if err != nil {
		if errors.Is(err, highlight.ErrDetached) {
			return nil, strategy, fmt.Errorf("%w: %w", ErrStructuralRace, err)
		}
		return nil, strategy, err
	}

	return &Result{
		HighlightID: h.ID,
		Strategy:    strategy,
		MatchedText: m.MatchedText,
		Similarity:  m.Similarity,
		Anchor:      h.Kind,
		WrapFailed:  h.WrapFailed,
		Path:        h.Path,
		ExpiresAt:   h.ExpiresAt(),
	}, strategy, nil
}

// Locate runs the cascade without touching the document.
func (s *Session) Locate(ctx context.Context, quote string) (match.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return match.Match{}, ErrSessionClosed
	}
	ix, err := s.index()
	if err != nil {
		return match.Match{}, err
	}
	return s.cascade.Locate(ctx, ix, quote)
}

// Index flattens the current content root.
func (s *Session) Index() (*flatten.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index()
}

// index must be called with mu held.
func (s *Session) index() (*flatten.Index, error) {
	root, err := dom.SelectRoot(s.doc, s.rootExpr)
	if err != nil {
		return nil, err
	}
	return flatten.Flatten(root,
		flatten.WithResolver(s.resolver),
		flatten.WithLogger(s.zap.Named("flatten"))), nil
}

// ClearAllHighlights removes every highlight immediately.
func (s *Session) ClearAllHighlights(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifecycle.ClearAll(ctx)
}

// RemoveHighlight starts the fade of one highlight.
func (s *Session) RemoveHighlight(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.Remove(ctx, id)
}

// Highlights returns a snapshot of the live highlights in creation order.
func (s *Session) Highlights() []highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.lifecycle.Registry().List()
	out := make([]highlight.Highlight, 0, len(live))
	for _, h := range live {
		out = append(out, *h)
	}
	return out
}

// Mutate runs fn with exclusive access to the document, the way unrelated
// page scripts edit the tree between highlight operations.
func (s *Session) Mutate(fn func(doc *html.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return fn(s.doc)
}

// Render writes the current document, highlights included.
func (s *Session) Render(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.Render(w, s.doc)
}

// RenderString returns the current document as HTML.
func (s *Session) RenderString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.RenderString(s.doc)
}

// Close clears every highlight and rejects further work. It models
// navigating away from the document.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lifecycle.Close(ctx)
	s.closed = true
}

// Outcome classifies a Highlight result for metrics and logs. A nil error
// is OutcomeHighlighted.
func Outcome(err error) string {
	if err == nil {
		return OutcomeHighlighted
	}
	switch {
	case errors.Is(err, ErrShortQuery):
		return OutcomeShortQuery
	case errors.Is(err, ErrNoMatch):
		return OutcomeNoMatch
	case errors.Is(err, ErrStructuralRace):
		return OutcomeRace
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	}
	return OutcomeError
}
