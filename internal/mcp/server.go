package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/engine"
)

// Config configures the MCP server.
type Config struct {
	Name    string
	Version string
	Logger  *zap.Logger
}

// Server serves highlight tools over MCP.
type Server struct {
	mcp     *mcp.Server
	store   *engine.Store
	logger  *zap.Logger
	metrics *Metrics
}

// Option configures a Server.
type Option func(*options)

type options struct {
	meter metric.Meter
}

// WithMeter sets the meter used for tool metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// NewServer creates an MCP server backed by store.
func NewServer(store *engine.Store, cfg *Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Name == "" {
		cfg.Name = "clausemark"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		store:   store,
		logger:  logger.Named("mcp"),
		metrics: NewMetrics(o.meter, logger),
	}
	s.registerTools()
	return s, nil
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// Close closes every open session.
func (s *Server) Close(ctx context.Context) {
	s.store.CloseAll(ctx)
}
