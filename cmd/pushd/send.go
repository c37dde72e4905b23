package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pushd/internal/presenter"
	"github.com/jmylchreest/pushd/internal/push"
	"github.com/jmylchreest/pushd/internal/transport"
)

var sendOpts struct {
	title   string
	body    string
	data    []string
	noTitle bool
	dryRun  bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Show one notification through the dispatcher",
	Long: `Build a push message from flags and deliver it once through the same
dispatcher path that 'pushd run' uses.

Examples:
  pushd send --title "Recall Alert" --body "Product X recalled"
  pushd send --title "Recall Alert" --data recall_id=42 --dry-run
  pushd send --no-notification --data foo=bar   # logged and dropped`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendOpts.title, "title", "t", "", "Notification title")
	sendCmd.Flags().StringVarP(&sendOpts.body, "body", "b", "", "Notification body")
	sendCmd.Flags().StringArrayVar(&sendOpts.data, "data", nil, "Data entry as key=value (repeatable)")
	sendCmd.Flags().BoolVar(&sendOpts.noTitle, "no-notification", false, "Send a data-only message")
	sendCmd.Flags().BoolVar(&sendOpts.dryRun, "dry-run", false, "Print the notification as JSON instead of showing it")
}

func runSend(cmd *cobra.Command, args []string) error {
	data, err := parseData(sendOpts.data)
	if err != nil {
		return err
	}

	var msg *push.InboundMessage
	if sendOpts.noTitle {
		msg = &push.InboundMessage{}
	} else {
		if sendOpts.title == "" {
			return fmt.Errorf("--title is required unless --no-notification is set")
		}
		msg = push.NewMessage(sendOpts.title, sendOpts.body)
	}
	msg.Data = data

	var opts presenter.Options
	if sendOpts.dryRun {
		opts = presenterOptions(cfg, os.Stdout)
	} else {
		opts = presenterOptions(cfg, nil)
	}
	p, err := presenter.New(opts, logger)
	if err != nil {
		return fmt.Errorf("failed to create presenter: %w", err)
	}

	d := newDispatcher(cfg, p, nil, logger)
	direct := transport.NewDirect()
	if err := d.Initialize(direct); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	direct.Deliver(context.Background(), msg)
	return nil
}

// parseData converts key=value pairs into a data map.
func parseData(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	data := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid data entry %q: expected key=value", pair)
		}
		data[key] = value
	}
	return data, nil
}
