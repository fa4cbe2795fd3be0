package match

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/flatten"
	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

// StrategyFunc is one cascade step. It reports whether it found the query.
type StrategyFunc func(ctx context.Context, ix *flatten.Index, q *Query) (Match, bool)

type step struct {
	strategy Strategy
	fn       StrategyFunc
}

// Cascade tries its strategies in order and returns the first match.
type Cascade struct {
	cfg       Config
	stopWords StopWords
	finder    NativeFinder
	logger    *zap.Logger
	steps     []step
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithLogger sets the cascade's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cascade) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFinder replaces the NativeSearch backend.
func WithFinder(f NativeFinder) Option {
	return func(c *Cascade) {
		c.finder = f
	}
}

// WithStopWords replaces the stop-word set.
func WithStopWords(s StopWords) Option {
	return func(c *Cascade) {
		c.stopWords = s
	}
}

// NewCascade builds the standard Exact, LeadingWords, KeyPhrase, Substring,
// NativeSearch cascade.
func NewCascade(cfg Config, opts ...Option) (*Cascade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Cascade{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.stopWords == nil {
		if cfg.StopWordsFile != "" {
			sw, err := LoadStopWords(cfg.StopWordsFile)
			if err != nil {
				return nil, err
			}
			c.stopWords = sw
		} else {
			c.stopWords = DefaultStopWords()
		}
	}
	if c.finder == nil {
		c.finder = &TreeFinder{}
	}

	c.steps = []step{
		{Exact, c.exact},
		{LeadingWords, c.leadingWords},
		{KeyPhrase, c.keyPhrase},
		{Substring, c.substring},
	}
	if cfg.NativeSearchEnabled {
		c.steps = append(c.steps, step{NativeSearch, c.nativeSearch})
	}
	return c, nil
}

// Config returns the thresholds the cascade runs with.
func (c *Cascade) Config() Config { return c.cfg }

// Locate finds raw in ix. It returns ErrShortQuery for queries below the
// minimum length and ErrNoMatch when every strategy fails. Buffer matches
// that do not overlap any text span are discarded and the cascade moves on.
func (c *Cascade) Locate(ctx context.Context, ix *flatten.Index, raw string) (Match, error) {
	q := NewQuery(raw)
	if q.Len() < c.cfg.MinQueryLength {
		return Match{}, fmt.Errorf("%w: %d < %d characters", ErrShortQuery, q.Len(), c.cfg.MinQueryLength)
	}

	for _, s := range c.steps {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		m, ok := s.fn(ctx, ix, q)
		if !ok {
			c.logger.Debug("strategy missed", zap.Stringer("strategy", s.strategy))
			continue
		}
		if m.Element == nil && len(ix.Overlapping(m.Start, m.End)) == 0 {
			c.logger.Debug("strategy hit outside text spans",
				zap.Stringer("strategy", s.strategy),
				zap.Int("start", m.Start),
				zap.Int("end", m.End))
			continue
		}
		m.Strategy = s.strategy
		m.Similarity = Similarity(q.Normalized, m.MatchedText)
		c.logger.Debug("strategy matched",
			zap.Stringer("strategy", s.strategy),
			zap.Int("start", m.Start),
			zap.Int("end", m.End),
			zap.Float64("similarity", m.Similarity))
		return m, nil
	}
	return Match{}, ErrNoMatch
}

func (c *Cascade) exact(_ context.Context, ix *flatten.Index, q *Query) (Match, bool) {
	return indexMatch(ix, q.Normalized)
}

// leadingWords searches the query's first n words for n descending from
// the cap to the floor, skipping phrases shorter than the character floor.
func (c *Cascade) leadingWords(_ context.Context, ix *flatten.Index, q *Query) (Match, bool) {
	hi := min(c.cfg.LeadingWordsMax, len(q.Words))
	for n := hi; n >= c.cfg.LeadingWordsMin; n-- {
		phrase := q.Phrase(0, n)
		if utf8.RuneCountInString(phrase) < c.cfg.LeadingWordsMinChars {
			continue
		}
		if m, ok := indexMatch(ix, phrase); ok {
			return m, true
		}
	}
	return Match{}, false
}

// keyPhrase slides windows of significant tokens over the query, largest
// window and earliest position first. Tokens must appear consecutively in
// the buffer but may be separated by any run of non-alphanumerics.
func (c *Cascade) keyPhrase(ctx context.Context, ix *flatten.Index, q *Query) (Match, bool) {
	tokens := c.significantTokens(q)
	hi := min(c.cfg.KeyPhraseWindowMax, len(tokens))
	for w := hi; w >= c.cfg.KeyPhraseWindowMin; w-- {
		for i := 0; i+w <= len(tokens); i++ {
			if ctx.Err() != nil {
				return Match{}, false
			}
			re, err := flexiblePattern(tokens[i : i+w])
			if err != nil {
				c.logger.Debug("key phrase pattern rejected", zap.Error(err))
				continue
			}
			if loc := re.FindStringSubmatchIndex(ix.Buffer); loc != nil {
				return bufferMatch(ix, loc[2], loc[3]), true
			}
		}
	}
	return Match{}, false
}

// substring slides windows over all query words looking for a verbatim
// contiguous hit.
func (c *Cascade) substring(_ context.Context, ix *flatten.Index, q *Query) (Match, bool) {
	hi := min(c.cfg.SubstringWindowMax, len(q.Words))
	for w := hi; w >= c.cfg.SubstringWindowMin; w-- {
		for i := 0; i+w <= len(q.Words); i++ {
			if m, ok := indexMatch(ix, q.Phrase(i, i+w)); ok {
				return m, true
			}
		}
	}
	return Match{}, false
}

func (c *Cascade) nativeSearch(ctx context.Context, ix *flatten.Index, q *Query) (Match, bool) {
	n := min(c.cfg.NativeSearchWords, len(q.Words))
	if n == 0 || ix.Root == nil {
		return Match{}, false
	}
	hit, ok := c.finder.Find(ctx, ix.Root, q.Phrase(0, n))
	if !ok || hit.Element == nil {
		return Match{}, false
	}
	return Match{MatchedText: hit.Text, Element: hit.Element}, true
}

// significantTokens returns the query words that survive punctuation
// trimming, the minimum length and the stop-word filter.
func (c *Cascade) significantTokens(q *Query) []string {
	var out []string
	for _, w := range q.Words {
		t := normalizeToken(w)
		if utf8.RuneCountInString(t) < c.cfg.KeyPhraseMinTokenLength || c.stopWords.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func normalizeToken(w string) string {
	return textnorm.TrimPunct(textnorm.Normalize(w))
}

// flexiblePattern matches the tokens in order as whole words separated by
// any run of non-word characters. Group 1 holds the phrase itself.
func flexiblePattern(tokens []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.Compile(`(?:^|[^\p{L}\p{N}])(` + strings.Join(quoted, `[^\p{L}\p{N}]+`) + `)(?:[^\p{L}\p{N}]|$)`)
}

func indexMatch(ix *flatten.Index, phrase string) (Match, bool) {
	if phrase == "" {
		return Match{}, false
	}
	i := strings.Index(ix.Buffer, phrase)
	if i < 0 {
		return Match{}, false
	}
	return bufferMatch(ix, i, i+len(phrase)), true
}

func bufferMatch(ix *flatten.Index, start, end int) Match {
	return Match{Start: start, End: end, MatchedText: ix.Buffer[start:end]}
}
