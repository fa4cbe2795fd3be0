package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/clausemark/internal/anchor"
	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/highlight"
	"github.com/fyrsmithlabs/clausemark/internal/match"
	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

const policy = `<html><body>
<h1>Privacy Policy</h1>
<p id="collect">We collect your personal information including your name and email address.</p>
<p id="rights"><span>Your</span><span>data</span><span>rights</span></p>
<div style="display:none"><p>Hidden clause about arbitration and waiver of class actions.</p></div>
</body></html>`

func newTestSession(t *testing.T, src string, opts ...SessionOption) (*Session, *clock.Mock) {
	t.Helper()
	doc, err := dom.ParseString(src)
	require.NoError(t, err)
	mock := clock.NewMock()
	s, err := NewSession(doc, DefaultConfig(), append([]SessionOption{WithClock(mock)}, opts...)...)
	require.NoError(t, err)
	return s, mock
}

func boolPtr(b bool) *bool { return &b }

func TestHighlightClause_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		quote    string
		want     bool
		strategy string
		anchor   anchor.Kind
	}{
		{
			name:     "exact at start of paragraph",
			quote:    "we collect your personal information",
			want:     true,
			strategy: "exact",
			anchor:   anchor.KindSingleNode,
		},
		{
			name:     "fragmented across inline elements",
			quote:    "your data rights",
			want:     true,
			strategy: "exact",
			anchor:   anchor.KindElementFallback,
		},
		{
			name:  "inside display none",
			quote: "Hidden clause about arbitration and waiver",
			want:  false,
		},
		{
			name:  "short query",
			quote: "your name",
			want:  false,
		},
		{
			name:  "absent",
			quote: "we sell your browsing history to advertisers",
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, policy)
			assert.Equal(t, tt.want, s.HighlightClause(context.Background(), tt.quote, Options{}))

			if !tt.want {
				assert.Empty(t, s.Highlights())
				return
			}
			hs := s.Highlights()
			require.Len(t, hs, 1)
			assert.Equal(t, tt.anchor, hs[0].Kind)
		})
	}
}

func TestHighlight_Result(t *testing.T) {
	s, mock := newTestSession(t, policy)

	res, err := s.Highlight(context.Background(), "We collect your personal information", Options{})
	require.NoError(t, err)
	assert.Equal(t, "exact", res.Strategy)
	assert.Equal(t, anchor.KindSingleNode, res.Anchor)
	assert.InDelta(t, 1.0, res.Similarity, 1e-9)
	assert.Equal(t, "we collect your personal information", res.MatchedText)
	assert.Equal(t, "/html/body/p[1]/mark", res.Path)
	assert.Equal(t, mock.Now().Add(DefaultDurationMillis*time.Millisecond), res.ExpiresAt)
	assert.True(t, strings.HasPrefix(res.HighlightID, "hl_"))
	assert.Contains(t, s.RenderString(), `<mark class="clausemark-highlight" data-clausemark-id="`+res.HighlightID+`">We collect your personal information</mark>`)
}

func TestHighlight_VerbatimSubstringsNormalizeBack(t *testing.T) {
	quotes := []string{
		"We collect your personal information including",
		"personal information including your name and email",
		"including your name and email address.",
		"Privacy Policy We collect your personal",
	}
	for _, q := range quotes {
		t.Run(q, func(t *testing.T) {
			s, _ := newTestSession(t, policy)
			res, err := s.Highlight(context.Background(), q, Options{})
			require.NoError(t, err)
			assert.Equal(t, textnorm.Normalize(q), textnorm.Normalize(res.MatchedText))
		})
	}
}

func TestHighlight_Errors(t *testing.T) {
	s, _ := newTestSession(t, policy)

	_, err := s.Highlight(context.Background(), "too short", Options{})
	assert.ErrorIs(t, err, ErrShortQuery)

	_, err = s.Highlight(context.Background(), "nothing like this sentence appears anywhere", Options{})
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.True(t, IsMiss(err))
}

func TestHighlight_DefaultsApply(t *testing.T) {
	var scrolled []highlight.ScrollOptions
	scroller := highlight.ScrollerFunc(func(_ *html.Node, opts highlight.ScrollOptions) {
		scrolled = append(scrolled, opts)
	})
	s, mock := newTestSession(t, policy, WithScroller(scroller))

	require.True(t, s.HighlightClause(context.Background(), "we collect your personal information", Options{}))
	require.Len(t, scrolled, 1)
	assert.Equal(t, highlight.DefaultScrollOptions, scrolled[0])

	mock.Add(DefaultDurationMillis*time.Millisecond - time.Millisecond)
	require.Len(t, s.Highlights(), 1)
	assert.Equal(t, highlight.StateActive, s.Highlights()[0].State)

	mock.Add(time.Millisecond)
	require.Len(t, s.Highlights(), 1)
	assert.Equal(t, highlight.StateFading, s.Highlights()[0].State)

	mock.Add(highlight.DefaultConfig().FadeDuration)
	assert.Empty(t, s.Highlights())

	require.True(t, s.HighlightClause(context.Background(), "we collect your personal information",
		Options{ScrollIntoView: boolPtr(false), DurationMillis: 100}))
	assert.Len(t, scrolled, 1, "scroll disabled")
	mock.Add(100*time.Millisecond + highlight.DefaultConfig().FadeDuration)
	assert.Empty(t, s.Highlights())
}

func TestHighlight_OverlappingExpireIndependently(t *testing.T) {
	s, mock := newTestSession(t, policy)
	before := s.RenderString()
	ctx := context.Background()
	fade := highlight.DefaultConfig().FadeDuration

	first, err := s.Highlight(ctx, "we collect your personal information", Options{DurationMillis: 1000})
	require.NoError(t, err)
	second, err := s.Highlight(ctx, "your personal information including your name", Options{DurationMillis: 3000})
	require.NoError(t, err)
	assert.Equal(t, anchor.KindSingleNode, first.Anchor)
	assert.Equal(t, anchor.KindElementFallback, second.Anchor)

	mock.Add(time.Second + fade)
	hs := s.Highlights()
	require.Len(t, hs, 1)
	assert.Equal(t, second.HighlightID, hs[0].ID)
	assert.Equal(t, highlight.StateActive, hs[0].State)
	assert.NotContains(t, s.RenderString(), "<mark")

	mock.Add(2 * time.Second)
	assert.Empty(t, s.Highlights())
	assert.Equal(t, before, s.RenderString())
}

func TestHighlight_OutOfOrderExpiryRestoresTextNodes(t *testing.T) {
	s, mock := newTestSession(t, policy)
	ctx := context.Background()
	before := s.RenderString()
	fade := highlight.DefaultConfig().FadeDuration

	first, err := s.Highlight(ctx, "We collect your personal informa", Options{DurationMillis: 1000})
	require.NoError(t, err)
	second, err := s.Highlight(ctx, "tion including your name and email address", Options{DurationMillis: 3000})
	require.NoError(t, err)
	require.Equal(t, anchor.KindSingleNode, first.Anchor)
	require.Equal(t, anchor.KindSingleNode, second.Anchor)

	mock.Add(time.Second + fade)
	require.Len(t, s.Highlights(), 1)
	mock.Add(2 * time.Second)
	require.Empty(t, s.Highlights())
	assert.Equal(t, before, s.RenderString())

	nodes, err := dom.Select(s.doc, `//p[@id="collect"]`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	count := 0
	for c := nodes[0].FirstChild; c != nil; c = c.NextSibling {
		count++
		assert.Equal(t, html.TextNode, c.Type)
	}
	assert.Equal(t, 1, count)

	ix, err := s.Index()
	require.NoError(t, err)
	assert.Contains(t, ix.Buffer, "personal information including")

	res, err := s.Highlight(ctx, "your personal information including your name", Options{})
	require.NoError(t, err)
	assert.Equal(t, match.Exact.String(), res.Strategy)
	assert.Equal(t, anchor.KindSingleNode, res.Anchor)
}

func TestClearAllHighlights(t *testing.T) {
	s, _ := newTestSession(t, policy)
	before := s.RenderString()
	ctx := context.Background()

	require.True(t, s.HighlightClause(ctx, "we collect your personal information", Options{}))
	require.True(t, s.HighlightClause(ctx, "your data rights", Options{}))
	require.Len(t, s.Highlights(), 2)

	s.ClearAllHighlights(ctx)
	assert.Empty(t, s.Highlights())
	assert.Equal(t, before, s.RenderString())
	assert.NotContains(t, s.RenderString(), highlight.MarkerIDAttr)
}

func TestRemoveHighlight(t *testing.T) {
	s, mock := newTestSession(t, policy)
	ctx := context.Background()

	res, err := s.Highlight(ctx, "we collect your personal information", Options{})
	require.NoError(t, err)
	require.NoError(t, s.RemoveHighlight(ctx, res.HighlightID))
	mock.Add(highlight.DefaultConfig().FadeDuration)
	assert.Empty(t, s.Highlights())

	assert.ErrorIs(t, s.RemoveHighlight(ctx, res.HighlightID), highlight.ErrNotFound)
}

func TestMutateBetweenCalls(t *testing.T) {
	s, _ := newTestSession(t, policy)
	ctx := context.Background()

	require.NoError(t, s.Mutate(func(doc *html.Node) error {
		p, err := dom.SelectRoot(doc, `//p[@id="collect"]`)
		if err != nil {
			return err
		}
		p.Parent.RemoveChild(p)
		return nil
	}))
	assert.False(t, s.HighlightClause(ctx, "we collect your personal information", Options{}))
	assert.True(t, s.HighlightClause(ctx, "your data rights", Options{}))
}

func TestRootXPath(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><nav>Accept all cookies and continue browsing</nav>
<article><p>We retain records for seven years after closure.</p></article></body></html>`)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.RootXPath = "//article"
	s, err := NewSession(doc, cfg, WithClock(clock.NewMock()))
	require.NoError(t, err)

	assert.False(t, s.HighlightClause(context.Background(), "accept all cookies and continue", Options{}))
	assert.True(t, s.HighlightClause(context.Background(), "we retain records for seven years", Options{}))

	cfg.RootXPath = "//main"
	_, err = NewSession(doc, cfg)
	assert.ErrorIs(t, err, dom.ErrNoRoot)
}

type fixedFinder struct {
	hit   match.Hit
	panic bool
}

func (f fixedFinder) Find(context.Context, *html.Node, string) (match.Hit, bool) {
	if f.panic {
		panic("finder exploded")
	}
	return f.hit, f.hit.Element != nil
}

func TestStructuralRaceIsAMiss(t *testing.T) {
	detached := &html.Node{Type: html.ElementNode, Data: "p"}
	s, _ := newTestSession(t, policy, WithFinder(fixedFinder{hit: match.Hit{Element: detached, Text: "gone"}}))

	_, err := s.Highlight(context.Background(), "a clause that only native search claims to find", Options{})
	assert.ErrorIs(t, err, ErrStructuralRace)
	assert.True(t, IsMiss(err))
	assert.False(t, s.HighlightClause(context.Background(), "a clause that only native search claims to find", Options{}))
}

func TestHighlightClause_RecoversPanics(t *testing.T) {
	s, _ := newTestSession(t, policy, WithFinder(fixedFinder{panic: true}))
	assert.NotPanics(t, func() {
		assert.False(t, s.HighlightClause(context.Background(), "a clause that only native search could find", Options{}))
	})
	// the session lock was released by the unwinding
	assert.True(t, s.HighlightClause(context.Background(), "we collect your personal information", Options{}))
}

func TestSessionRateLimit(t *testing.T) {
	s, _ := newTestSession(t, policy, WithLimiter(rate.NewLimiter(0, 1)))
	ctx := context.Background()

	require.True(t, s.HighlightClause(ctx, "we collect your personal information", Options{}))
	_, err := s.Highlight(ctx, "we collect your personal information", Options{})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsRetryable(err))
}

func TestSessionClose(t *testing.T) {
	s, _ := newTestSession(t, policy)
	ctx := context.Background()
	before := s.RenderString()

	require.True(t, s.HighlightClause(ctx, "we collect your personal information", Options{}))
	s.Close(ctx)
	s.Close(ctx)

	assert.Empty(t, s.Highlights())
	assert.Equal(t, before, s.RenderString())

	_, err := s.Highlight(ctx, "we collect your personal information", Options{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Locate(ctx, "we collect your personal information")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Mutate(func(*html.Node) error { return nil }), ErrSessionClosed)
}

func TestLocateDoesNotMutate(t *testing.T) {
	s, _ := newTestSession(t, policy)
	before := s.RenderString()

	m, err := s.Locate(context.Background(), "your data rights")
	require.NoError(t, err)
	assert.Equal(t, match.Exact, m.Strategy)
	assert.Equal(t, before, s.RenderString())
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyDocument)

	doc, err := dom.ParseString(policy)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Anchor.AncestorTextRatio = 0.5
	_, err = NewSession(doc, cfg)
	assert.ErrorIs(t, err, anchor.ErrInvalidRatio)
}

func TestOptionsDefaults(t *testing.T) {
	assert.True(t, Options{}.scroll())
	assert.False(t, Options{ScrollIntoView: boolPtr(false)}.scroll())
	assert.Equal(t, 5*time.Second, Options{}.duration())
	assert.Equal(t, 5*time.Second, Options{DurationMillis: -3}.duration())
	assert.Equal(t, 1500*time.Millisecond, Options{DurationMillis: 1500}.duration())
}
