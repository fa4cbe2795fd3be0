package match

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/flatten"
)

func index(t *testing.T, body string) *flatten.Index {
	t.Helper()
	doc, err := dom.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)
	root, err := dom.SelectRoot(doc, "")
	require.NoError(t, err)
	return flatten.Flatten(root)
}

func newCascade(t *testing.T, opts ...Option) *Cascade {
	t.Helper()
	c, err := NewCascade(DefaultConfig(), opts...)
	require.NoError(t, err)
	return c
}

func TestLocateStrategies(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		query        string
		wantStrategy Strategy
		wantText     string
	}{
		{
			name:         "exact",
			body:         `<p>We collect your personal information to provide our services.</p>`,
			query:        "We collect your personal information",
			wantStrategy: Exact,
			wantText:     "we collect your personal information",
		},
		{
			name:         "exact across mangled whitespace and typography",
			body:         "<p>We don’t sell\n   your data — ever.</p>",
			query:        `we don't sell your data - ever`,
			wantStrategy: Exact,
			wantText:     "we don't sell your data - ever",
		},
		{
			name:         "leading words",
			body:         `<p>We collect your personal information from many sources when you register.</p>`,
			query:        "We collect your personal information from many sources, unless you opt out completely",
			wantStrategy: LeadingWords,
			wantText:     "we collect your personal information from many",
		},
		{
			name:         "key phrase",
			body:         `<p>Retention period: seven years, unless required otherwise.</p>`,
			query:        "The retention period is seven years unless required otherwise by law",
			wantStrategy: KeyPhrase,
			wantText:     "retention period: seven years, unless required otherwise",
		},
		{
			name:         "substring",
			body:         `<p>You can opt out of the sale of your data at any time through settings.</p>`,
			query:        "Honestly, you can opt out of the sale of your data whenever",
			wantStrategy: Substring,
			wantText:     "you can opt out of the sale of your data",
		},
		{
			name:         "native search",
			body:         `<p>Please contact the <b>priv</b>acy officer for any request about retention.</p>`,
			query:        "contact the privacy officer for any questions",
			wantStrategy: NativeSearch,
			wantText:     "contact the privacy officer for any",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := index(t, tt.body)
			m, err := newCascade(t).Locate(context.Background(), ix, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStrategy, m.Strategy, "strategy %s", m.Strategy)
			assert.Equal(t, tt.wantText, m.MatchedText)
			assert.Greater(t, m.Similarity, 0.0)
			assert.LessOrEqual(t, m.Similarity, 1.0)

			if m.Strategy == NativeSearch {
				require.NotNil(t, m.Element)
				assert.Equal(t, "p", m.Element.Data)
				return
			}
			assert.Nil(t, m.Element)
			assert.True(t, 0 <= m.Start && m.Start < m.End && m.End <= len(ix.Buffer))
			assert.Equal(t, tt.wantText, ix.Buffer[m.Start:m.End])
		})
	}
}

func TestLocateExactAtOffsetZero(t *testing.T) {
	ix := index(t, `<p>We collect your personal information to provide our services.</p>`)
	m, err := newCascade(t).Locate(context.Background(), ix, "we collect your personal information")
	require.NoError(t, err)
	assert.Equal(t, Exact, m.Strategy)
	assert.Equal(t, 0, m.Start)
	assert.Equal(t, len("we collect your personal information"), m.End)
	assert.Equal(t, 1.0, m.Similarity)
}

func TestLocateExactWinsOverLeadingWords(t *testing.T) {
	// The query's leading words also occur in the first paragraph, but the
	// whole query only in the second.
	body := `<p>We collect your personal information from many sources daily.</p>` +
		`<p>We collect your personal information from many sources when you register.</p>`
	query := "we collect your personal information from many sources when you register"
	ix := index(t, body)

	m, err := newCascade(t).Locate(context.Background(), ix, query)
	require.NoError(t, err)
	assert.Equal(t, Exact, m.Strategy)
	assert.Equal(t, strings.Index(ix.Buffer, query), m.Start)
	assert.Positive(t, m.Start)
}

func TestLocateAcrossInlineElements(t *testing.T) {
	ix := index(t, `<p><span>Your</span> <em>data</em> <strong>rights</strong> are described here.</p>`)
	m, err := newCascade(t).Locate(context.Background(), ix, "Your data rights")
	require.NoError(t, err)
	assert.Equal(t, Exact, m.Strategy)
	assert.Len(t, ix.Overlapping(m.Start, m.End), 3)
}

func TestLocateNotFound(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		query   string
		wantErr error
	}{
		{"short query", `<p>Terms apply.</p>`, "Terms apply", ErrShortQuery},
		{"whitespace padded short query", `<p>Terms apply.</p>`, "   terms   apply.   ", ErrShortQuery},
		{"absent", `<p>We never sell anything.</p>`, "quantum entanglement of penguin colonies", ErrNoMatch},
		{"hidden", `<p>Visible text only.</p><div style="display:none"><p>We sell your data to brokers.</p></div>`, "We sell your data to brokers", ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newCascade(t).Locate(context.Background(), index(t, tt.body), tt.query)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCascade(t).Locate(ctx, index(t, `<p>anything at all here</p>`), "anything at all here")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocateNativeSearchDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NativeSearchEnabled = false
	c, err := NewCascade(cfg)
	require.NoError(t, err)

	ix := index(t, `<p>Please contact the <b>priv</b>acy officer for any request about retention.</p>`)
	_, err = c.Locate(context.Background(), ix, "contact the privacy officer for any questions")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSignificantTokens(t *testing.T) {
	c := newCascade(t)
	q := NewQuery("The retention period is (seven) years, by law.")
	assert.Equal(t, []string{"retention", "period", "seven", "years", "law"}, c.significantTokens(q))
}

func TestKeyPhraseMatchesWholeWords(t *testing.T) {
	ix := index(t, `<p>Metadata retention, seven years apply.</p><p>Data retention: seven years.</p>`)
	m, err := newCascade(t).Locate(context.Background(), ix, "data retention is seven years")
	require.NoError(t, err)
	assert.Equal(t, KeyPhrase, m.Strategy)
	assert.Equal(t, "data retention: seven years", m.MatchedText)
	assert.Equal(t, strings.Index(ix.Buffer, "data retention:"), m.Start)
}

func TestFlexiblePattern(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		text   string
		want   string
	}{
		{"flexible separators", []string{"seven", "years"}, "for seven,   years.", "seven,   years"},
		{"at buffer edges", []string{"seven", "years"}, "seven years", "seven years"},
		{"token inside a longer word", []string{"data", "retention"}, "metadata retention", ""},
		{"token prefix of a longer word", []string{"data", "retention"}, "data retentions", ""},
		{"regexp metacharacters quoted", []string{"c++", "rules"}, "the c++ rules", "c++ rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := flexiblePattern(tt.tokens)
			require.NoError(t, err)
			loc := re.FindStringSubmatchIndex(tt.text)
			if tt.want == "" {
				assert.Nil(t, loc)
				return
			}
			require.NotNil(t, loc)
			assert.Equal(t, tt.want, tt.text[loc[2]:loc[3]])
		})
	}
}

func TestWithStopWords(t *testing.T) {
	c := newCascade(t, WithStopWords(NewStopWords([]string{"seven", "years"})))
	q := NewQuery("The retention period is seven years")
	assert.Equal(t, []string{"the", "retention", "period"}, c.significantTokens(q))
}

func TestLoadStopWords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stopwords.toml")
	require.NoError(t, os.WriteFile(path, []byte(`words = ["Retention", "period"]`), 0o600))

	cfg := DefaultConfig()
	cfg.StopWordsFile = path
	c, err := NewCascade(cfg)
	require.NoError(t, err)

	q := NewQuery("The retention period is seven years")
	assert.Equal(t, []string{"the", "seven", "years"}, c.significantTokens(q))

	cfg.StopWordsFile = filepath.Join(dir, "missing.toml")
	_, err = NewCascade(cfg)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.toml")
	require.NoError(t, os.WriteFile(empty, []byte(`words = []`), 0o600))
	cfg.StopWordsFile = empty
	_, err = NewCascade(cfg)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min query length", func(c *Config) { c.MinQueryLength = 0 }},
		{"leading words inverted", func(c *Config) { c.LeadingWordsMin = 20 }},
		{"key phrase zero", func(c *Config) { c.KeyPhraseWindowMin = 0 }},
		{"substring inverted", func(c *Config) { c.SubstringWindowMax = 2 }},
		{"token length", func(c *Config) { c.KeyPhraseMinTokenLength = 0 }},
		{"native words", func(c *Config) { c.NativeSearchWords = 0 }},
		{"negative chars", func(c *Config) { c.LeadingWordsMinChars = -1 }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
			_, err := NewCascade(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestStrategyString(t *testing.T) {
	for s := Exact; s <= NativeSearch; s++ {
		parsed, ok := ParseStrategy(s.String())
		require.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "unknown", Strategy(0).String())
	_, ok := ParseStrategy("fuzzy")
	assert.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("your data rights", "Your  DATA rights"))
	assert.Equal(t, 0.0, Similarity("alpha beta", "gamma delta"))
	assert.InDelta(t, 8.0/9.0, Similarity("a b c d e", "a b c d"), 0.0001)
	assert.Equal(t, 1.0, Similarity("", ""))
}
