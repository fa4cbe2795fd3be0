package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	clausehttp "github.com/fyrsmithlabs/clausemark/internal/http"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check clausemarkd health",
	Long: `Check the health status of a running clausemarkd.

Examples:
  clausemark health
  clausemark health --server http://localhost:9191`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealth(cmd.OutOrStdout(), serverURL)
	},
}

func runHealth(w io.Writer, baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var health clausehttp.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("status  "), valueStyle.Render(health.Status))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("version "), valueStyle.Render(health.Version))
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("sessions"), health.Sessions)
	if health.Telemetry != nil {
		fmt.Fprintf(w, "%s healthy=%t degraded=%t\n", labelStyle.Render("telemetry"),
			health.Telemetry.Healthy, health.Telemetry.Degraded)
	}
	return nil
}
