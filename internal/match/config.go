package match

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps every Config validation failure.
var ErrInvalidConfig = errors.New("invalid match config")

// Config holds the cascade thresholds. The defaults are empirical and
// should be tuned against a real corpus.
type Config struct {
	MinQueryLength          int    `koanf:"min_query_length"`
	LeadingWordsMax         int    `koanf:"leading_words_max"`
	LeadingWordsMin         int    `koanf:"leading_words_min"`
	LeadingWordsMinChars    int    `koanf:"leading_words_min_chars"`
	KeyPhraseWindowMax      int    `koanf:"key_phrase_window_max"`
	KeyPhraseWindowMin      int    `koanf:"key_phrase_window_min"`
	KeyPhraseMinTokenLength int    `koanf:"key_phrase_min_token_length"`
	SubstringWindowMax      int    `koanf:"substring_window_max"`
	SubstringWindowMin      int    `koanf:"substring_window_min"`
	NativeSearchWords       int    `koanf:"native_search_words"`
	NativeSearchEnabled     bool   `koanf:"native_search_enabled"`
	StopWordsFile           string `koanf:"stopwords_file"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinQueryLength:          15,
		LeadingWordsMax:         15,
		LeadingWordsMin:         5,
		LeadingWordsMinChars:    20,
		KeyPhraseWindowMax:      8,
		KeyPhraseWindowMin:      3,
		KeyPhraseMinTokenLength: 3,
		SubstringWindowMax:      12,
		SubstringWindowMin:      4,
		NativeSearchWords:       6,
		NativeSearchEnabled:     true,
	}
}

// Validate checks the thresholds are usable.
func (c Config) Validate() error {
	if c.MinQueryLength < 1 {
		return fmt.Errorf("%w: min_query_length must be >= 1, got %d", ErrInvalidConfig, c.MinQueryLength)
	}
	windows := []struct {
		name     string
		min, max int
	}{
		{"leading_words", c.LeadingWordsMin, c.LeadingWordsMax},
		{"key_phrase_window", c.KeyPhraseWindowMin, c.KeyPhraseWindowMax},
		{"substring_window", c.SubstringWindowMin, c.SubstringWindowMax},
	}
	for _, w := range windows {
		if w.min < 1 || w.max < w.min {
			return fmt.Errorf("%w: %s range [%d,%d] must satisfy 1 <= min <= max", ErrInvalidConfig, w.name, w.min, w.max)
		}
	}
	if c.LeadingWordsMinChars < 0 {
		return fmt.Errorf("%w: leading_words_min_chars must be >= 0", ErrInvalidConfig)
	}
	if c.KeyPhraseMinTokenLength < 1 {
		return fmt.Errorf("%w: key_phrase_min_token_length must be >= 1", ErrInvalidConfig)
	}
	if c.NativeSearchEnabled && c.NativeSearchWords < 1 {
		return fmt.Errorf("%w: native_search_words must be >= 1", ErrInvalidConfig)
	}
	return nil
}
