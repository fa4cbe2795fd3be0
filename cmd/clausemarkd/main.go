// Clausemarkd serves the clause highlighting engine.
//
// By default it runs the HTTP API. The mcp subcommand serves the same
// engine as MCP tools over stdio.
//
// Configuration is read from ~/.config/clausemark/config.yaml (or the file
// named by -config) and overridden by CLAUSEMARK_* environment variables.
// See internal/config for details.
//
// Usage:
//
//	# Start the HTTP daemon
//	clausemarkd
//
//	# Serve MCP over stdio
//	clausemarkd mcp
//
//	# Override the port
//	CLAUSEMARK_SERVER_HTTP_PORT=9191 clausemarkd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/config"
	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/highlight"
	"github.com/fyrsmithlabs/clausemark/internal/http"
	"github.com/fyrsmithlabs/clausemark/internal/logging"
	"github.com/fyrsmithlabs/clausemark/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	logLevel := flag.String("log-level", "", "override logging.level (trace, debug, info, warn, error)")
	flag.Parse()
	args := flag.Args()

	mode := "http"
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "mcp":
			mode = "mcp"
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  clausemarkd           Start the HTTP daemon\n")
			fmt.Fprintf(os.Stderr, "  clausemarkd mcp       Serve MCP tools over stdio\n")
			fmt.Fprintf(os.Stderr, "  clausemarkd version   Show version information\n")
			os.Exit(1)
		}
	}

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := applyLogLevel(cfg, *logLevel); err != nil {
		log.Fatalf("Invalid -log-level: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mode == "mcp" {
		err = runMCP(ctx, cfg)
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("clausemarkd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// applyLogLevel overrides the configured level when level is set.
func applyLogLevel(cfg *config.Config, level string) error {
	if level == "" {
		return nil
	}
	l, err := logging.LevelFromString(level)
	if err != nil {
		return err
	}
	cfg.Logging.Level = l
	return nil
}

// run serves the HTTP API until ctx is cancelled, then shuts down within
// the configured timeout.
func run(ctx context.Context, cfg *config.Config) error {
	rt, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := http.NewServer(rt.store, rt.logger.Underlying(), &http.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		BodyLimit: cfg.Server.BodyLimit,
		APIKey:    cfg.Server.APIKey.Value(),
	}, http.WithTelemetry(rt.telemetry), http.WithVersion(version))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	rt.logger.Info(ctx, "clausemarkd started",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("version", version),
		zap.Bool("telemetry", rt.telemetry.IsEnabled()),
		zap.Bool("api_key", cfg.Server.APIKey.IsSet()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	rt.logger.Info(ctx, "clausemarkd stopped")
	return nil
}

// runtime holds the process-wide dependencies shared by both modes.
type runtime struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     *engine.Store
}

// setup builds telemetry, the logger and the session store.
func setup(ctx context.Context, cfg *config.Config) (*runtime, error) {
	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	engineMetrics, err := engine.NewMetrics(tel.Meter(engine.InstrumentationName))
	if err != nil {
		logger.Warn(ctx, "engine metrics disabled", zap.Error(err))
	}
	highlightMetrics, err := highlight.NewMetrics(tel.Meter(highlight.InstrumentationName))
	if err != nil {
		logger.Warn(ctx, "highlight metrics disabled", zap.Error(err))
	}

	store, err := engine.NewStore(cfg.Sessions, cfg.Pipeline(),
		engine.WithLogger(logger.Underlying()),
		engine.WithMetrics(engineMetrics, highlightMetrics),
		engine.WithTracer(tel.Tracer(engine.InstrumentationName)),
	)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, telemetry: tel, store: store}, nil
}

// Close closes every session and flushes telemetry and logs.
func (r *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Telemetry.ShutdownTimeout)
	defer cancel()
	r.store.CloseAll(ctx)
	if err := r.telemetry.Shutdown(ctx); err != nil {
		r.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = r.logger.Sync() // Best-effort sync on shutdown
}
