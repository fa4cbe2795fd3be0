// Package main implements the clausemark CLI: locate and highlight quotes
// in local HTML files, and check a running clausemarkd.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/config"
	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/engine"
)

var (
	// configPath overrides the default config file location
	configPath string
	// serverURL is the base URL of a running clausemarkd
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clausemark",
	Short: "Locate and highlight quoted clauses in HTML documents",
	Long: `clausemark finds short, possibly paraphrased quotations in HTML documents
and highlights the passage they came from.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/clausemark/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9090", "clausemarkd server URL")
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(highlightCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(initCmd)
}

// openFile parses an HTML file into a session configured from the config
// file and environment.
func openFile(path string) (*engine.Session, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return engine.NewSession(doc, cfg.Pipeline(), engine.WithLogger(zap.NewNop()))
}
