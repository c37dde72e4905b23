package main

import (
	"io"
	"log/slog"

	"github.com/jmylchreest/pushd/internal/config"
	"github.com/jmylchreest/pushd/internal/dbus"
	"github.com/jmylchreest/pushd/internal/dispatcher"
	"github.com/jmylchreest/pushd/internal/metrics"
	"github.com/jmylchreest/pushd/internal/presenter"
	"github.com/jmylchreest/pushd/internal/transport"
)

// presenterOptions maps the config onto presenter options.
// A non-nil w forces the stdout presenter writing to w.
func presenterOptions(c *config.Config, w io.Writer) presenter.Options {
	urgency, _ := dbus.ParseUrgency(c.Notification.Urgency) // checked by Validate

	opts := presenter.Options{
		Kind:   c.Presenter.Kind,
		Format: c.Presenter.Format,
		DBus: presenter.DBusOptions{
			AppName:       c.Notification.AppName,
			DesktopEntry:  c.Notification.DesktopEntry,
			Urgency:       urgency,
			ExpireTimeout: c.Notification.ExpireTimeout.Duration(),
		},
	}
	if w != nil {
		opts.Kind = presenter.KindStdout
		opts.Writer = w
	}
	return opts
}

// newDispatcher builds the process-wide dispatcher.
func newDispatcher(c *config.Config, p presenter.Presenter, m *metrics.Metrics, logger *slog.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(p,
		dispatcher.WithLogger(logger),
		dispatcher.WithIcons(c.IconRefs()),
		dispatcher.WithMetrics(m),
	)
}

// buildTransports creates a runner for every enabled transport.
func buildTransports(c *config.Config, m *metrics.Metrics, logger *slog.Logger) []transport.Runner {
	t := c.Transports
	var runners []transport.Runner

	if t.Webhook.Enabled {
		opts := transport.WebhookOptions{
			Addr:         t.Webhook.Addr,
			MaxBodyBytes: t.Webhook.MaxBodyBytes,
		}
		if t.Webhook.RequireKey {
			opts.APIKey = c.Identity.APIKey
		}
		runners = append(runners, transport.NewWebhook(opts, m, logger))
	}
	if t.NATS.Enabled {
		runners = append(runners, transport.NewNATS(transport.NATSOptions{
			URL:     t.NATS.URL,
			Subject: t.NATS.Subject,
			Queue:   t.NATS.Queue,
		}, logger))
	}
	if t.Redis.Enabled {
		runners = append(runners, transport.NewRedis(transport.RedisOptions{
			Addr:     t.Redis.Addr,
			Password: t.Redis.Password,
			DB:       t.Redis.DB,
			Channel:  t.Redis.Channel,
		}, logger))
	}
	if t.WebSocket.Enabled {
		runners = append(runners, transport.NewWebSocket(transport.WebSocketOptions{
			URL:          t.WebSocket.URL,
			Identity:     c.Identity,
			RetryBackoff: t.WebSocket.RetryBackoff.Duration(),
		}, logger))
	}
	if t.Spool.Enabled {
		runners = append(runners, transport.NewSpool(t.Spool.Dir, logger))
	}
	return runners
}
