package match

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// defaultStopWords are common English function words that carry no
// distinguishing content in a policy clause.
var defaultStopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am",
	"an", "and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could", "did",
	"do", "does", "doing", "down", "during", "each", "either", "etc", "few",
	"for", "from", "further", "had", "has", "have", "having", "he", "her",
	"here", "hers", "herself", "him", "himself", "his", "how", "however", "i",
	"if", "in", "into", "is", "it", "its", "itself", "just", "may", "me",
	"might", "more", "most", "must", "my", "myself", "no", "nor", "not", "now",
	"of", "off", "on", "once", "only", "or", "other", "our", "ours",
	"ourselves", "out", "over", "own", "same", "shall", "she", "should", "so",
	"some", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "there", "these", "they", "this", "those", "through",
	"to", "too", "under", "until", "up", "upon", "very", "was", "we", "were",
	"what", "when", "where", "whether", "which", "while", "who", "whom", "why",
	"will", "with", "within", "without", "would", "you", "your", "yours",
	"yourself", "yourselves",
}

// StopWords is a set of lowercase words ignored by the key phrase strategy.
type StopWords map[string]struct{}

// NewStopWords builds a set from words.
func NewStopWords(words []string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// DefaultStopWords returns the built-in English set.
func DefaultStopWords() StopWords {
	return NewStopWords(defaultStopWords)
}

// Contains reports whether w is a stop word.
func (s StopWords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

type stopWordsFile struct {
	Words []string `toml:"words"`
}

// LoadStopWords reads a TOML file of the form
//
//	words = ["a", "an", "the"]
//
// Words are normalized before use.
func LoadStopWords(path string) (StopWords, error) {
	var f stopWordsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading stop words from %s: %w", path, err)
	}
	if len(f.Words) == 0 {
		return nil, fmt.Errorf("stop words file %s defines no words", path)
	}
	words := make([]string, 0, len(f.Words))
	for _, w := range f.Words {
		words = append(words, normalizeToken(w))
	}
	return NewStopWords(words), nil
}
