package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/clausemark/internal/config"
)

const starterConfig = `# clausemark configuration. Every key is optional; CLAUSEMARK_* environment
# variables override this file.
server:
  http_host: 127.0.0.1
  http_port: 9090
  shutdown_timeout: 10s
logging:
  level: info
  format: json
telemetry:
  enabled: false
match:
  min_query_length: 15
  native_search_enabled: true
anchor:
  ancestor_text_ratio: 3
  stop_at: [body, html]
highlight:
  default_ttl: 5s
  max_ttl: 5m
`

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Create ~/.config/clausemark/config.yaml with mode 0600.

An existing file is left alone unless --force is given.

Examples:
  clausemark init
  clausemark init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.OutOrStdout(), initForce)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
}

func runInit(w io.Writer, force bool) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0600)
	if errors.Is(err, os.ErrExist) {
		_, _ = fmt.Fprintf(w, "config already exists: %s\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.WriteString(f, starterConfig); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// O_TRUNC keeps the old mode, and the loader rejects anything looser.
	if err := os.Chmod(path, 0600); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "wrote %s\n", path)
	return nil
}
