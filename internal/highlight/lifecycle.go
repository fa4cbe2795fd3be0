package highlight

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/clausemark/internal/anchor"
	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

// MarkerIDAttr is set on every marker element to the owning highlight ID.
const MarkerIDAttr = "data-clausemark-id"

type classKey struct {
	node  *html.Node
	class string
}

// classRef counts highlights sharing one class on one element. owned is
// false when the element carried the class before any highlight added it.
type classRef struct {
	count int
	owned bool
}

// Lifecycle creates and retires the highlights of one document.
//
// Lifecycle is not safe for concurrent use: every method must be called
// from the goroutine that owns the document, or under the lock the
// Dispatcher serializes with. Expiry and fade timers re-enter through the
// Dispatcher.
type Lifecycle struct {
	cfg        Config
	clock      clock.Clock
	dispatcher Dispatcher
	scroller   Scroller
	registry   *Registry
	classes    map[classKey]*classRef
	metrics    *Metrics
	logger     *Logger
	closed     bool
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithClock sets the clock used for timestamps and timers.
func WithClock(c clock.Clock) Option {
	return func(l *Lifecycle) {
		l.clock = c
	}
}

// WithScroller sets the scroll backend.
func WithScroller(s Scroller) Option {
	return func(l *Lifecycle) {
		l.scroller = s
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(l *Lifecycle) {
		l.metrics = m
	}
}

// WithLogger sets the zap logger.
func WithLogger(z *zap.Logger) Option {
	return func(l *Lifecycle) {
		l.logger = NewLogger(z)
	}
}

// NewLifecycle creates a lifecycle whose timers dispatch through d.
func NewLifecycle(cfg Config, d Dispatcher, opts ...Option) (*Lifecycle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", ErrInvalidConfig)
	}
	l := &Lifecycle{
		cfg:        cfg,
		clock:      clock.New(),
		dispatcher: d,
		scroller:   nopScroller{},
		registry:   NewRegistry(),
		classes:    make(map[classKey]*classRef),
		logger:     NewLogger(nil),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Registry exposes the live highlights.
func (l *Lifecycle) Registry() *Registry { return l.registry }

// Create highlights the anchor for ttl (non-positive means the default
// TTL) and optionally scrolls it into view. A single-node anchor whose
// range can no longer be wrapped falls back to styling the node's parent
// element. ErrDetached is returned when nothing is left to style.
func (l *Lifecycle) Create(ctx context.Context, a anchor.Anchor, ttl time.Duration, scroll bool) (*Highlight, error) {
	if l.closed {
		return nil, ErrClosed
	}
	h := &Highlight{
		ID:        newID(),
		CreatedAt: l.clock.Now(),
		TTL:       l.cfg.EffectiveTTL(ttl),
		State:     StateActive,
	}

	switch a := a.(type) {
	case anchor.SingleNode:
		if a.Node == nil || !dom.Attached(a.Node) {
			return nil, ErrDetached
		}
		marker := dom.NewElement(l.cfg.MarkerTag)
		dom.AddClass(marker, l.cfg.MarkerClass)
		dom.SetAttr(marker, MarkerIDAttr, h.ID)

		w, err := dom.WrapRange(a.Node, a.Start, a.End, marker)
		if err != nil {
			l.logger.WrapFailure(ctx, h.ID, err)
			parent := dom.ParentElement(a.Node)
			if parent == nil {
				return nil, ErrDetached
			}
			h.Kind = anchor.KindElementFallback
			h.WrapFailed = true
			h.StyledElement = parent
			l.acquireClass(parent, l.cfg.FallbackClass)
		} else {
			h.Kind = anchor.KindSingleNode
			h.Marker = marker
			h.wrap = w
		}
	case anchor.ElementFallback:
		if a.Element == nil || !dom.Attached(a.Element) {
			return nil, ErrDetached
		}
		h.Kind = anchor.KindElementFallback
		h.StyledElement = a.Element
		l.acquireClass(a.Element, l.cfg.FallbackClass)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedAnchor, a)
	}

	target := h.Target()
	h.Path = dom.Path(target)
	h.Text = textnorm.Normalize(dom.TextContent(target))

	if err := l.registry.Add(h); err != nil {
		l.rollback(ctx, h)
		return nil, err
	}

	id := h.ID
	h.expiry = l.clock.AfterFunc(h.TTL, func() {
		l.dispatcher.Dispatch(func() { l.expire(id) })
	})

	if scroll {
		l.scroller.ScrollIntoView(target, DefaultScrollOptions)
	}

	l.metrics.RecordCreated(ctx, h)
	l.logger.Created(ctx, h)
	return h, nil
}

// Remove starts the fade of an active highlight. The structural rollback
// happens when the fade completes. Removing a fading or removed highlight
// is a no-op.
func (l *Lifecycle) Remove(ctx context.Context, id string) error {
	h, ok := l.registry.Get(id)
	if !ok {
		return ErrNotFound
	}
	return l.remove(ctx, h, ReasonRemoved)
}

func (l *Lifecycle) remove(ctx context.Context, h *Highlight, reason string) error {
	if h.State != StateActive {
		return nil
	}
	if err := l.startFade(ctx, h, reason); err != nil {
		return err
	}
	if l.cfg.FadeDuration == 0 {
		return l.finalize(ctx, h, reason)
	}
	id := h.ID
	h.fade = l.clock.AfterFunc(l.cfg.FadeDuration, func() {
		l.dispatcher.Dispatch(func() {
			if cur, ok := l.registry.Get(id); ok {
				_ = l.finalize(context.Background(), cur, reason)
			}
		})
	})
	return nil
}

// ClearAll removes every registered highlight in registry order. Each one
// passes through the fade state but is rolled back immediately, so the
// registry is empty and no markers remain when ClearAll returns.
func (l *Lifecycle) ClearAll(ctx context.Context) {
	for _, h := range l.registry.List() {
		if h.State == StateActive {
			if err := l.startFade(ctx, h, ReasonCleared); err != nil {
				continue
			}
		}
		_ = l.finalize(ctx, h, ReasonCleared)
	}
}

// Close clears all highlights and rejects further Create calls. Pending
// timer callbacks become no-ops.
func (l *Lifecycle) Close(ctx context.Context) {
	l.ClearAll(ctx)
	l.closed = true
}

func (l *Lifecycle) expire(id string) {
	if l.closed {
		return
	}
	h, ok := l.registry.Get(id)
	if !ok {
		return
	}
	_ = l.remove(context.Background(), h, ReasonExpired)
}

func (l *Lifecycle) startFade(ctx context.Context, h *Highlight, reason string) error {
	if err := l.transition(h, StateFading); err != nil {
		return err
	}
	stopTimer(h.expiry)
	if h.Marker != nil {
		dom.AddClass(h.Marker, l.cfg.FadeClass)
	} else {
		l.acquireClass(h.StyledElement, l.cfg.FadeClass)
	}
	l.logger.Fading(ctx, h, reason)
	return nil
}

func (l *Lifecycle) finalize(ctx context.Context, h *Highlight, reason string) error {
	if h.State != StateFading {
		return nil
	}
	stopTimer(h.fade)
	stopTimer(h.expiry)
	l.rollback(ctx, h)
	if err := l.transition(h, StateRemoved); err != nil {
		return err
	}
	h.RemovedAt = l.clock.Now()
	l.registry.Delete(h.ID)

	lifetime := h.RemovedAt.Sub(h.CreatedAt)
	l.metrics.RecordRemoved(ctx, h, reason, lifetime)
	l.logger.Removed(ctx, h, reason, lifetime)
	return nil
}

// rollback undoes the highlight's edits to the document.
func (l *Lifecycle) rollback(ctx context.Context, h *Highlight) {
	if h.wrap != nil {
		if err := dom.Unwrap(h.wrap); err != nil {
			l.logger.RollbackFailed(ctx, h, err)
		}
		return
	}
	if h.StyledElement != nil {
		l.releaseClass(h.StyledElement, l.cfg.FadeClass)
		l.releaseClass(h.StyledElement, l.cfg.FallbackClass)
	}
}

func (l *Lifecycle) transition(h *Highlight, to State) error {
	if !h.State.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.State, to)
	}
	h.State = to
	return nil
}

// acquireClass adds class to n on behalf of one highlight.
func (l *Lifecycle) acquireClass(n *html.Node, class string) {
	key := classKey{node: n, class: class}
	ref, ok := l.classes[key]
	if !ok {
		ref = &classRef{owned: dom.AddClass(n, class)}
		l.classes[key] = ref
	}
	ref.count++
}

// releaseClass drops one highlight's claim on class, removing it from n
// once no highlight needs it and it was not there originally.
func (l *Lifecycle) releaseClass(n *html.Node, class string) {
	key := classKey{node: n, class: class}
	ref, ok := l.classes[key]
	if !ok {
		return
	}
	ref.count--
	if ref.count > 0 {
		return
	}
	delete(l.classes, key)
	if ref.owned {
		dom.RemoveClass(n, class)
	}
}

func stopTimer(t *clock.Timer) {
	if t != nil {
		t.Stop()
	}
}
