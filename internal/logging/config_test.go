package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Output.Stdout)
	assert.False(t, cfg.Output.Stderr)
	assert.Equal(t, time.Second, cfg.Sampling.Tick)
	assert.Equal(t, "clausemark", cfg.Fields["service"])
	assert.Contains(t, cfg.Redaction.Patterns, PatternEmail)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"console format", func(c *Config) { c.Format = "console" }, ""},
		{"stderr only", func(c *Config) { c.Output.Stdout = false; c.Output.Stderr = true }, ""},
		{"otel only", func(c *Config) { c.Output.Stdout = false; c.Output.OTEL = true }, ""},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"no outputs", func(c *Config) { c.Output.Stdout = false }, "at least one output"},
		{"stdout and stderr", func(c *Config) { c.Output.Stderr = true }, "mutually exclusive"},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }, "sampling tick"},
		{"zero tick sampling off", func(c *Config) { c.Sampling.Tick = 0; c.Sampling.Enabled = false }, ""},
		{"negative caller skip", func(c *Config) { c.Caller.Skip = -1 }, "caller skip"},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }, "invalid redaction pattern"},
		{"long pattern", func(c *Config) { c.Redaction.Patterns = []string{strings.Repeat("a", 201)} }, "too long"},
		{"bad pattern redaction off", func(c *Config) { c.Redaction.Enabled = false; c.Redaction.Patterns = []string{"("} }, ""},
		{"empty field key", func(c *Config) { c.Fields[""] = "x" }, "field key"},
		{"empty field value", func(c *Config) { c.Fields["env"] = "" }, "empty value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"TRACE", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{" info ", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"Warning", zapcore.WarnLevel, false},
		{"", zapcore.InfoLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "trace", LevelName(TraceLevel))
	assert.Equal(t, "warn", LevelName(zapcore.WarnLevel))
	assert.Equal(t, "info", LevelName(zapcore.InfoLevel))
	assert.Equal(t, "fatal", LevelName(zapcore.FatalLevel))
}
