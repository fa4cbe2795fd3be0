package highlight

import (
	"fmt"
	"regexp"
	"time"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Config controls how highlights look and how long they live.
type Config struct {
	MarkerTag     string        `koanf:"marker_tag"`
	MarkerClass   string        `koanf:"marker_class"`
	FallbackClass string        `koanf:"fallback_class"`
	FadeClass     string        `koanf:"fade_class"`
	FadeDuration  time.Duration `koanf:"fade_duration"`
	DefaultTTL    time.Duration `koanf:"default_ttl"`
	MaxTTL        time.Duration `koanf:"max_ttl"`
}

// DefaultConfig returns the stock look and timings.
func DefaultConfig() Config {
	return Config{
		MarkerTag:     "mark",
		MarkerClass:   "clausemark-highlight",
		FallbackClass: "clausemark-highlight-block",
		FadeClass:     "clausemark-fading",
		FadeDuration:  300 * time.Millisecond,
		DefaultTTL:    5 * time.Second,
		MaxTTL:        5 * time.Minute,
	}
}

// Validate checks the config for errors.
func (c Config) Validate() error {
	names := map[string]string{
		"marker_tag":     c.MarkerTag,
		"marker_class":   c.MarkerClass,
		"fallback_class": c.FallbackClass,
		"fade_class":     c.FadeClass,
	}
	for key, v := range names {
		if !namePattern.MatchString(v) {
			return fmt.Errorf("%w: %s %q is not a valid name", ErrInvalidConfig, key, v)
		}
	}
	if c.FadeDuration < 0 {
		return fmt.Errorf("%w: fade_duration must be >= 0", ErrInvalidConfig)
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("%w: default_ttl must be > 0", ErrInvalidConfig)
	}
	if c.MaxTTL < c.DefaultTTL {
		return fmt.Errorf("%w: max_ttl %s is below default_ttl %s", ErrInvalidConfig, c.MaxTTL, c.DefaultTTL)
	}
	return nil
}

// EffectiveTTL applies the default to non-positive values and caps at MaxTTL.
func (c Config) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.DefaultTTL
	}
	return min(ttl, c.MaxTTL)
}
