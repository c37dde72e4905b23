package dbus

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Urgency levels matching freedesktop spec.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// UrgencyNames maps urgency levels to human-readable names.
var UrgencyNames = map[byte]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// ParseUrgency converts "low", "normal" or "critical" to an urgency level.
// An empty string is treated as normal.
func ParseUrgency(s string) (byte, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow, nil
	case "", "normal":
		return UrgencyNormal, nil
	case "critical":
		return UrgencyCritical, nil
	default:
		return UrgencyNormal, fmt.Errorf("invalid urgency %q: must be low, normal or critical", s)
	}
}

// Notification holds the parameters of an org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// SetHint sets a hint, allocating the map if needed.
func (n *Notification) SetHint(key string, value any) {
	if n.Hints == nil {
		n.Hints = make(map[string]dbus.Variant)
	}
	n.Hints[key] = dbus.MakeVariant(value)
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *Notification) Urgency() byte {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return b
		}
	}
	return UrgencyNormal
}

// DesktopEntry extracts the desktop-entry hint.
func (n *Notification) DesktopEntry() string {
	return n.stringHint("desktop-entry")
}

// ImagePath extracts the image-path hint.
func (n *Notification) ImagePath() string {
	return n.stringHint("image-path")
}

func (n *Notification) stringHint(key string) string {
	if v, ok := n.Hints[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// String returns "name version (vendor, spec x.y)".
func (i ServerInfo) String() string {
	return fmt.Sprintf("%s %s (%s, spec %s)", i.Name, i.Version, i.Vendor, i.SpecVersion)
}
