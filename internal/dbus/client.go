package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name owned by the notification server.
	DBusBusName = "org.freedesktop.Notifications"
)

// caller is the subset of dbus.BusObject used by Client.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Client sends notifications to the session bus notification server.
type Client struct {
	obj    caller
	logger *slog.Logger
}

// Connect connects to the session bus and returns a Client for the
// notification server object.
func Connect(logger *slog.Logger) (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	// Don't close the connection as it's shared (SessionBus)
	return NewClient(conn.Object(DBusBusName, DBusPath), logger), nil
}

// NewClient creates a Client calling methods on obj.
func NewClient(obj caller, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{obj: obj, logger: logger}
}

// Notify sends a notification and returns the server-assigned ID.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (c *Client) Notify(ctx context.Context, n *Notification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	call := c.obj.CallWithContext(ctx, DBusInterface+".Notify", 0,
		n.AppName,
		n.ReplacesID,
		n.AppIcon,
		n.Summary,
		n.Body,
		actions,
		hints,
		n.ExpireTimeout,
	)
	if call.Err != nil {
		return 0, fmt.Errorf("failed to call Notify: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to read Notify reply: %w", err)
	}

	c.logger.Debug("Notify sent",
		"app_name", n.AppName,
		"summary", n.Summary,
		"urgency", UrgencyNames[n.Urgency()],
		"id", id,
	)
	return id, nil
}

// GetCapabilities returns the capabilities advertised by the server.
// D-Bus method: GetCapabilities() -> as
func (c *Client) GetCapabilities(ctx context.Context) ([]string, error) {
	call := c.obj.CallWithContext(ctx, DBusInterface+".GetCapabilities", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("failed to call GetCapabilities: %w", call.Err)
	}

	var caps []string
	if err := call.Store(&caps); err != nil {
		return nil, fmt.Errorf("failed to read GetCapabilities reply: %w", err)
	}
	return caps, nil
}

// GetServerInformation returns information about the notification server.
// D-Bus method: GetServerInformation() -> (ssss)
func (c *Client) GetServerInformation(ctx context.Context) (ServerInfo, error) {
	call := c.obj.CallWithContext(ctx, DBusInterface+".GetServerInformation", 0)
	if call.Err != nil {
		return ServerInfo{}, fmt.Errorf("failed to call GetServerInformation: %w", call.Err)
	}

	var info ServerInfo
	if err := call.Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion); err != nil {
		return ServerInfo{}, fmt.Errorf("failed to read GetServerInformation reply: %w", err)
	}
	return info, nil
}
