package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/clausemark/internal/config"
	"github.com/fyrsmithlabs/clausemark/internal/mcp"
)

// runMCP serves the MCP tools over stdio. Stdout carries the protocol, so
// logs are forced to stderr.
func runMCP(ctx context.Context, cfg *config.Config) error {
	stdioLogging(cfg)

	rt, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := mcp.NewServer(rt.store, &mcp.Config{
		Version: version,
		Logger:  rt.logger.Underlying(),
	}, mcp.WithMeter(rt.telemetry.Meter("github.com/fyrsmithlabs/clausemark/internal/mcp")))
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "clausemarkd mcp started (version %s)\n", version)
	return srv.Run(ctx)
}

func stdioLogging(cfg *config.Config) {
	cfg.Logging.Output.Stdout = false
	cfg.Logging.Output.Stderr = true
}
