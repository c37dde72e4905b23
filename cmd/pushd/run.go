package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pushd/internal/dbus"
	"github.com/jmylchreest/pushd/internal/metrics"
	"github.com/jmylchreest/pushd/internal/presenter"
	"github.com/jmylchreest/pushd/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dispatcher with the configured transports",
	Long: `Run pushd in the foreground.

The enabled transports are started and every received message is shown as a
notification until SIGINT or SIGTERM is received.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger.Info("starting pushd", "version", version, "identity", cfg.Identity)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := presenter.New(presenterOptions(cfg, nil), logger)
	if err != nil {
		return fmt.Errorf("failed to create presenter: %w", err)
	}
	if cfg.Presenter.Kind == presenter.KindDBus {
		logServerInfo(ctx)
	}

	m := metrics.New()
	d := newDispatcher(cfg, p, m, logger)

	mux := transport.NewMux(logger, buildTransports(cfg, m, logger)...)
	if mux.Len() == 0 {
		return fmt.Errorf("no transports enabled in %s", configPathOrDefault())
	}
	if err := d.Initialize(mux); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	logger.Info("pushd ready", "transports", cfg.EnabledTransports(), "presenter", cfg.Presenter.Kind)

	if err := mux.Run(ctx); err != nil {
		return err
	}

	logger.Info("pushd stopped")
	return nil
}

// logServerInfo reports which notification server will render notifications.
func logServerInfo(ctx context.Context) {
	client, err := dbus.Connect(logger)
	if err != nil {
		logger.Warn("no session bus", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	info, err := client.GetServerInformation(ctx)
	if err != nil {
		logger.Warn("no notification server found; notifications may not be shown", "error", err)
		return
	}
	caps, _ := client.GetCapabilities(ctx)
	logger.Info("notification server", "server", info.String(), "capabilities", caps)
}
