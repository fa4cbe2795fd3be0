package engine

import (
	"fmt"

	"github.com/fyrsmithlabs/clausemark/internal/anchor"
	"github.com/fyrsmithlabs/clausemark/internal/highlight"
	"github.com/fyrsmithlabs/clausemark/internal/match"
)

// Config bundles the per-session pipeline settings.
type Config struct {
	Match     match.Config
	Anchor    anchor.Config
	Highlight highlight.Config
	// RootXPath selects the content root. Empty means the body element.
	RootXPath string
	// HiddenClasses are class names treated as display:none. Nil means
	// dom.DefaultHiddenClasses.
	HiddenClasses []string
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		Match:     match.DefaultConfig(),
		Anchor:    anchor.DefaultConfig(),
		Highlight: highlight.DefaultConfig(),
	}
}

// Validate checks every stage's settings.
func (c Config) Validate() error {
	if err := c.Match.Validate(); err != nil {
		return err
	}
	if err := c.Anchor.Validate(); err != nil {
		return err
	}
	return c.Highlight.Validate()
}

// StoreConfig bounds the session store.
type StoreConfig struct {
	MaxSessions int `koanf:"max_sessions"`
	// RateLimit is the sustained highlight requests per second allowed
	// per session. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
	// MaxDocumentBytes caps the HTML accepted by Open.
	MaxDocumentBytes int64 `koanf:"max_document_bytes"`
}

// DefaultStoreConfig returns the stock store bounds.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxSessions:      100,
		RateLimit:        10,
		RateBurst:        20,
		MaxDocumentBytes: 5 << 20,
	}
}

// Validate checks the store bounds.
func (c StoreConfig) Validate() error {
	if c.MaxSessions <= 0 {
		return fmt.Errorf("%w: max_sessions must be > 0", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must be >= 0", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("%w: rate_burst must be > 0 when rate_limit is set", ErrInvalidConfig)
	}
	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("%w: max_document_bytes must be > 0", ErrInvalidConfig)
	}
	return nil
}
