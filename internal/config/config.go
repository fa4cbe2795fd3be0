// Package config loads clausemark configuration from defaults, an
// optional YAML file, and CLAUSEMARK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/clausemark/internal/anchor"
	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/highlight"
	"github.com/fyrsmithlabs/clausemark/internal/logging"
	"github.com/fyrsmithlabs/clausemark/internal/match"
	"github.com/fyrsmithlabs/clausemark/internal/telemetry"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the complete clausemark configuration.
type Config struct {
	Server    ServerConfig       `koanf:"server"`
	Logging   logging.Config     `koanf:"logging"`
	Telemetry telemetry.Config   `koanf:"telemetry"`
	Engine    EngineConfig       `koanf:"engine"`
	Match     match.Config       `koanf:"match"`
	Anchor    anchor.Config      `koanf:"anchor"`
	Highlight highlight.Config   `koanf:"highlight"`
	Sessions  engine.StoreConfig `koanf:"sessions"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// BodyLimit is an echo size string such as "6M".
	BodyLimit string `koanf:"body_limit"`
	// APIKey, when set, is required as a bearer token on /api routes.
	APIKey Secret `koanf:"api_key"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig holds document-level pipeline settings.
type EngineConfig struct {
	RootXPath     string   `koanf:"root_xpath"`
	HiddenClasses []string `koanf:"hidden_classes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            9090,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "6M",
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
		Match:     match.DefaultConfig(),
		Anchor:    anchor.DefaultConfig(),
		Highlight: highlight.DefaultConfig(),
		Sessions:  engine.DefaultStoreConfig(),
	}
}

// Pipeline returns the per-session engine configuration.
func (c *Config) Pipeline() engine.Config {
	return engine.Config{
		Match:         c.Match,
		Anchor:        c.Anchor,
		Highlight:     c.Highlight,
		RootXPath:     c.Engine.RootXPath,
		HiddenClasses: c.Engine.HiddenClasses,
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d (must be 1-65535)", ErrInvalid, c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server shutdown timeout must be positive", ErrInvalid)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: logging: %w", ErrInvalid, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %w", ErrInvalid, err)
	}
	if err := c.Pipeline().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Sessions.Validate(); err != nil {
		return fmt.Errorf("%w: sessions: %w", ErrInvalid, err)
	}
	return nil
}
