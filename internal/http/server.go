// Package http serves the clausemark engine over a JSON API.
package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/logging"
	"github.com/fyrsmithlabs/clausemark/internal/telemetry"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// BodyLimit caps request bodies, e.g. "6M". Empty disables the cap.
	BodyLimit string
	// APIKey, when set, must be sent as "Authorization: Bearer <key>" on
	// every /api route.
	APIKey string
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	store   *engine.Store
	logger  *zap.Logger
	config  *Config
	version string
	health  func() telemetry.HealthStatus
	prom    *promMetrics
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	meter   metric.Meter
	version string
	health  func() telemetry.HealthStatus
}

// WithTelemetry records request metrics through tel and reports its health
// on /health.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(o *serverOptions) {
		o.meter = tel.Meter(httpInstrumentationName)
		o.health = tel.Health
	}
}

// WithMeter records request metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(o *serverOptions) {
		o.meter = m
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(o *serverOptions) {
		o.version = v
	}
}

// NewServer creates a server backed by store.
func NewServer(store *engine.Store, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9090}
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		store:   store,
		logger:  logger,
		config:  cfg,
		version: o.version,
		health:  o.health,
		prom:    newPromMetrics(store.Len),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(NewHTTPMetrics(o.meter, logger).MetricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := logging.WithClient(c.Request().Context(), "http")
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidateID(rid, "request id") == nil {
				ctx = logging.WithRequestID(ctx, rid)
			}
			c.SetRequest(c.Request().WithContext(ctx))
			err := next(c)
			s.logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.prom.registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	if s.config.APIKey != "" {
		key := []byte(s.config.APIKey)
		v1.Use(middleware.KeyAuth(func(got string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(got), key) == 1, nil
		}))
	}
	v1.GET("/sessions", s.handleListSessions)
	v1.POST("/sessions", s.handleOpenSession)
	v1.GET("/sessions/:id", s.handleRenderSession)
	v1.DELETE("/sessions/:id", s.handleCloseSession)
	v1.POST("/sessions/:id/locate", s.handleLocate)
	v1.GET("/sessions/:id/highlights", s.handleListHighlights)
	v1.POST("/sessions/:id/highlights", s.handleHighlight)
	v1.DELETE("/sessions/:id/highlights", s.handleClearHighlights)
	v1.DELETE("/sessions/:id/highlights/:hid", s.handleRemoveHighlight)
}

// Echo exposes the router for extra routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// clean shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
