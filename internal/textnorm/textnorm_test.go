package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "We Collect DATA", "we collect data"},
		{"collapse whitespace", "we\n\t  collect   data", "we collect data"},
		{"nbsp", "your\u00a0data", "your data"},
		{"trim", "  padded  ", "padded"},
		{"curly single", "we’re ‘here’", "we're 'here'"},
		{"curly double", "“quoted”", `"quoted"`},
		{"dashes", "opt–in — out", "opt-in - out"},
		{"ellipsis", "and so on…", "and so on..."},
		{"empty", "", ""},
		{"only space", " \n  ", ""},
		{"non ascii", "Données Personnelles", "données personnelles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"We Collect  Your Personal Information…",
		"“Data” — ‘rights’\t\n",
		"ÀÉÎÕÜ straße İstanbul",
		"\xff\xfe broken utf8",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestMapSource(t *testing.T) {
	src := "  We Collect…  "
	m := Map(src)
	assert.Equal(t, "we collect...", m.Text)
	assert.Equal(t, len(m.Text), m.Len())

	// "we" maps to the raw "We" after two leading spaces.
	from, to := m.Source(0, 2)
	assert.Equal(t, "We", src[from:to])

	// "collect" spans the raw word.
	from, to = m.Source(3, 10)
	assert.Equal(t, "Collect", src[from:to])

	// the three dots come from a single three-byte rune.
	from, to = m.Source(10, 13)
	assert.Equal(t, "…", src[from:to])

	// a partial ellipsis still covers the whole rune.
	from, to = m.Source(11, 12)
	assert.Equal(t, "…", src[from:to])

	// out of range is clamped.
	from, to = m.Source(-5, 100)
	assert.Equal(t, "We Collect…", src[from:to])

	from, to = Map("").Source(0, 1)
	assert.Equal(t, 0, from)
	assert.Equal(t, 0, to)
}

func TestWordsAndTrimPunct(t *testing.T) {
	assert.Equal(t, []string{"we", "collect", "data."}, Words("we collect data."))
	assert.Equal(t, "data", TrimPunct("(data)."))
	assert.Equal(t, "don't", TrimPunct("'don't'"))
	assert.Equal(t, "", TrimPunct("--"))
}
