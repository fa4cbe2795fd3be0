// Package match locates a quotation inside a flattened document using an
// ordered cascade of increasingly lenient strategies.
package match

import (
	"errors"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

// Locate outcomes. Neither is a fault: both mean "not found".
var (
	ErrShortQuery = errors.New("query shorter than minimum reliable length")
	ErrNoMatch    = errors.New("no strategy matched the query")
)

// Strategy identifies the cascade step that produced a match.
type Strategy int

// Strategies in cascade order.
const (
	Exact Strategy = iota + 1
	LeadingWords
	KeyPhrase
	Substring
	NativeSearch
)

var strategyNames = map[Strategy]string{
	Exact:        "exact",
	LeadingWords: "leading_words",
	KeyPhrase:    "key_phrase",
	Substring:    "substring",
	NativeSearch: "native_search",
}

// String returns the strategy's snake_case name.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(name string) (Strategy, bool) {
	for s, n := range strategyNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Match is the single result of a Locate call.
//
// Buffer strategies set Start and End with 0 <= Start < End <= len(Buffer)
// and leave Element nil. NativeSearch bypasses the buffer: it sets Element
// to the live element that owns the hit and leaves the offsets zero.
type Match struct {
	Start       int
	End         int
	Strategy    Strategy
	MatchedText string
	// Similarity is the word-level difflib ratio between the normalized
	// query and MatchedText, in [0, 1].
	Similarity float64
	Element    *html.Node
}

// Query is a normalized quotation.
type Query struct {
	Raw        string
	Normalized string
	Words      []string
}

// NewQuery normalizes raw.
func NewQuery(raw string) *Query {
	norm := textnorm.Normalize(raw)
	return &Query{
		Raw:        raw,
		Normalized: norm,
		Words:      textnorm.Words(norm),
	}
}

// Len returns the query length in characters.
func (q *Query) Len() int {
	return len([]rune(q.Normalized))
}

// Phrase joins words[from:to] with single spaces.
func (q *Query) Phrase(from, to int) string {
	return strings.Join(q.Words[from:to], " ")
}

// Similarity scores how much of the query survives in matched, by words.
func Similarity(query, matched string) float64 {
	a, b := textnorm.Words(query), textnorm.Words(textnorm.Normalize(matched))
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}
