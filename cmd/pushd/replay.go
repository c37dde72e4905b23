package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pushd/internal/metrics"
	"github.com/jmylchreest/pushd/internal/presenter"
	"github.com/jmylchreest/pushd/internal/transport"
)

var replayOpts struct {
	dryRun bool
}

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Deliver newline-delimited JSON messages from a file or stdin",
	Long: `Read one push message per line and deliver each through the dispatcher.

Reads from stdin when no file is given or the file is "-". Lines longer than
1 MiB are skipped and counted as malformed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().BoolVar(&replayOpts.dryRun, "dry-run", false, "Print notifications instead of showing them")
}

func runReplay(cmd *cobra.Command, args []string) error {
	src := transport.NewStdin(logger)
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		src = transport.NewStdinWithReader(f, logger)
	}

	var w io.Writer
	if replayOpts.dryRun {
		w = os.Stdout
	}
	p, err := presenter.New(presenterOptions(cfg, w), logger)
	if err != nil {
		return fmt.Errorf("failed to create presenter: %w", err)
	}

	m := metrics.New()
	d := newDispatcher(cfg, p, m, logger)
	if err := d.Initialize(src); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	if err := src.Run(cmd.Context()); err != nil {
		return err
	}

	s := m.Snapshot()
	logger.Info("replay finished", "received", s.Received, "displayed", s.Displayed, "malformed", s.Malformed, "failed", s.PresenterErrors)
	return nil
}
