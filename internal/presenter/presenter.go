// Package presenter implements the notification presentation capability:
// rendering a title and options into the host's notification tray.
package presenter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmylchreest/pushd/internal/dbus"
	"github.com/jmylchreest/pushd/internal/push"
)

// Presenter kinds.
const (
	KindDBus   = "dbus"
	KindStdout = "stdout"
)

// Presenter renders a notification.
type Presenter interface {
	ShowNotification(ctx context.Context, title string, opts push.NotificationOptions) error
}

// notifier is the subset of *dbus.Client used by DBusPresenter.
type notifier interface {
	Notify(ctx context.Context, n *dbus.Notification) (uint32, error)
}

// DBusOptions configures the D-Bus presenter.
type DBusOptions struct {
	AppName       string
	DesktopEntry  string
	Urgency       byte
	ExpireTimeout time.Duration // 0 = server default
	CallTimeout   time.Duration
}

// DBusPresenter shows notifications through org.freedesktop.Notifications.
type DBusPresenter struct {
	client notifier
	opts   DBusOptions
	logger *slog.Logger
}

// NewDBusPresenter creates a presenter sending to client.
func NewDBusPresenter(client notifier, opts DBusOptions, logger *slog.Logger) *DBusPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 5 * time.Second
	}
	return &DBusPresenter{client: client, opts: opts, logger: logger}
}

// ShowNotification sends one Notify call. The icon becomes the app icon and
// the badge is passed as the image-path hint.
func (p *DBusPresenter) ShowNotification(ctx context.Context, title string, opts push.NotificationOptions) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	n := p.notification(title, opts)
	id, err := p.client.Notify(ctx, n)
	if err != nil {
		return err
	}

	p.logger.Debug("notification shown", "id", id, "summary", title)
	return nil
}

func (p *DBusPresenter) notification(title string, opts push.NotificationOptions) *dbus.Notification {
	expire := int32(-1)
	if p.opts.ExpireTimeout > 0 {
		expire = int32(p.opts.ExpireTimeout.Milliseconds())
	}

	n := &dbus.Notification{
		AppName:       p.opts.AppName,
		AppIcon:       opts.Icon,
		Summary:       title,
		Body:          opts.Body,
		ExpireTimeout: expire,
	}
	n.SetHint("urgency", p.opts.Urgency)
	if opts.Badge != "" {
		n.SetHint("image-path", opts.Badge)
	}
	if p.opts.DesktopEntry != "" {
		n.SetHint("desktop-entry", p.opts.DesktopEntry)
	}
	return n
}

// Options controls which presenter New builds.
type Options struct {
	Kind   string // "dbus" or "stdout"
	Format string // stdout only: "json" or "yaml"
	DBus   DBusOptions
	Writer io.Writer // stdout only; defaults to os.Stdout
}

// New builds the presenter described by opts.
func New(opts Options, logger *slog.Logger) (Presenter, error) {
	switch opts.Kind {
	case "", KindDBus:
		client, err := dbus.Connect(logger)
		if err != nil {
			return nil, err
		}
		return NewDBusPresenter(client, opts.DBus, logger), nil
	case KindStdout:
		p, err := NewWriterPresenter(opts.Writer, opts.Format)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown presenter %q", opts.Kind)
	}
}
