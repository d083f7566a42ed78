package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status string `json:"status"`
}

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout time.Duration
		url     string
		ready   bool
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running server",
		Long: `Call /healthz (or /readyz with --ready) on a running server. Used by the
container HEALTHCHECK; exits non-zero when the server is unhealthy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := url
			if target == "" {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = "8080"
				}
				path := "/healthz"
				if ready {
					path = "/readyz"
				}
				target = fmt.Sprintf("http://localhost:%s%s", port, path)
			}
			return probe(cmd.Context(), target, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&url, "url", "", "probe URL (default: http://localhost:$SERVER_PORT/healthz)")
	cmd.Flags().BoolVar(&ready, "ready", false, "probe readiness instead of liveness")
	return cmd
}

func probe(ctx context.Context, url string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("parse health response: %w", err)
	}
	if body.Status != "ok" && body.Status != "ready" {
		return fmt.Errorf("unhealthy: status=%s", body.Status)
	}
	return nil
}
