package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pushd/internal/metrics"
)

var statusOpts struct {
	addr string
	json bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show delivery counters of a running daemon",
	Long: `Query the webhook transport of a running pushd for its delivery counters.

The webhook transport must be enabled for status to be available.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusOpts.addr, "addr", "",
		"Webhook address of the daemon (default: transports.webhook.addr)")
	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false, "Output raw JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusOpts.addr
	if addr == "" {
		addr = cfg.Transports.Webhook.Addr
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	snap, err := fetchStatus(ctx, statusURL(addr))
	if err != nil {
		return err
	}

	if statusOpts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	fmt.Print(formatStatus(snap, time.Now()))
	return nil
}

// statusURL builds the status endpoint URL from a listen address.
func statusURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/") + "/v1/status"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/v1/status"
}

func fetchStatus(ctx context.Context, url string) (metrics.Snapshot, error) {
	var snap metrics.Snapshot

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snap, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return snap, fmt.Errorf("pushd is not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return snap, fmt.Errorf("status request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode status: %w", err)
	}
	return snap, nil
}

// formatStatus renders a snapshot for humans.
func formatStatus(s metrics.Snapshot, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Started:       %s\n", humanize.RelTime(s.StartedAt, now, "ago", "from now"))
	if s.LastDelivery.IsZero() {
		fmt.Fprintf(&b, "Last message:  never\n")
	} else {
		fmt.Fprintf(&b, "Last message:  %s\n", humanize.RelTime(s.LastDelivery, now, "ago", "from now"))
	}
	fmt.Fprintf(&b, "Received:      %s\n", humanize.Comma(s.Received))
	fmt.Fprintf(&b, "Displayed:     %s\n", humanize.Comma(s.Displayed))
	fmt.Fprintf(&b, "Malformed:     %s\n", humanize.Comma(s.Malformed))
	fmt.Fprintf(&b, "Failed:        %s\n", humanize.Comma(s.PresenterErrors))
	return b.String()
}
