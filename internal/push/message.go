// Package push defines the push message payloads received from messaging
// transports and the display requests derived from them.
package push

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultIconRef is the icon used for both the notification icon and badge
// when none is configured.
const DefaultIconRef = "/icons/Icon-192.png"

// Identity holds the project/application identity of a messaging transport.
// The values are opaque pass-through configuration.
type Identity struct {
	APIKey        string `toml:"api_key" json:"apiKey,omitempty"`
	AppID         string `toml:"app_id" json:"appId,omitempty"`
	SenderID      string `toml:"sender_id" json:"messagingSenderId,omitempty"`
	ProjectID     string `toml:"project_id" json:"projectId,omitempty"`
	AuthDomain    string `toml:"auth_domain" json:"authDomain,omitempty"`
	StorageBucket string `toml:"storage_bucket" json:"storageBucket,omitempty"`
	MeasurementID string `toml:"measurement_id" json:"measurementId,omitempty"`
}

// LogValue implements slog.LogValuer. The API key is never logged.
func (i Identity) LogValue() slog.Value {
	key := ""
	if i.APIKey != "" {
		key = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("api_key", key),
		slog.String("app_id", i.AppID),
		slog.String("sender_id", i.SenderID),
		slog.String("project_id", i.ProjectID),
	)
}

// NotificationPayload is the display part of a push message.
// Nil fields were absent on the wire.
type NotificationPayload struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// InboundMessage is a received push payload. It lives for the duration of a
// single handler invocation.
type InboundMessage struct {
	Notification *NotificationPayload `json:"notification,omitempty"`
	Data         map[string]string    `json:"data,omitempty"`

	// Delivery metadata, set by some transports.
	MessageID   string `json:"messageId,omitempty"`
	From        string `json:"from,omitempty"`
	CollapseKey string `json:"collapseKey,omitempty"`
}

// NewMessage builds a message with a notification carrying title and body.
func NewMessage(title, body string) *InboundMessage {
	return &InboundMessage{
		Notification: &NotificationPayload{Title: &title, Body: &body},
	}
}

// Decode parses a JSON push payload.
// Syntax errors are reported as malformed payloads.
func Decode(data []byte) (*InboundMessage, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &MalformedPayloadError{Reason: "empty payload"}
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &MalformedPayloadError{Reason: "invalid JSON", Err: err}
	}
	return &msg, nil
}

// IconRefs are the fixed presentation assets attached to every notification.
type IconRefs struct {
	Icon  string
	Badge string
}

// DefaultIconRefs returns the icon refs used when none are configured.
func DefaultIconRefs() IconRefs {
	return IconRefs{Icon: DefaultIconRef, Badge: DefaultIconRef}
}

// NotificationOptions are the options passed along with a notification title.
type NotificationOptions struct {
	Body  string `json:"body" yaml:"body"`
	Icon  string `json:"icon" yaml:"icon"`
	Badge string `json:"badge" yaml:"badge"`
}

// DisplayRequest is the immutable presentation derived from an InboundMessage.
type DisplayRequest struct {
	title string
	body  string
	icon  string
	badge string
}

// Title returns the notification title.
func (r DisplayRequest) Title() string { return r.title }

// Body returns the notification body.
func (r DisplayRequest) Body() string { return r.body }

// Icon returns the icon reference.
func (r DisplayRequest) Icon() string { return r.icon }

// Badge returns the badge reference.
func (r DisplayRequest) Badge() string { return r.badge }

// Options returns the display options for the presentation capability.
func (r DisplayRequest) Options() NotificationOptions {
	return NotificationOptions{Body: r.body, Icon: r.icon, Badge: r.badge}
}

// BuildDisplayRequest extracts a display request from msg.
// A missing notification or title yields a *MalformedPayloadError.
// A missing body is rendered as an empty body.
func BuildDisplayRequest(msg *InboundMessage, icons IconRefs) (DisplayRequest, error) {
	if msg == nil {
		return DisplayRequest{}, &MalformedPayloadError{Reason: "no message"}
	}
	if msg.Notification == nil {
		return DisplayRequest{}, &MalformedPayloadError{Reason: "notification field absent"}
	}
	if msg.Notification.Title == nil {
		return DisplayRequest{}, &MalformedPayloadError{Reason: "notification title absent"}
	}

	req := DisplayRequest{
		title: *msg.Notification.Title,
		icon:  icons.Icon,
		badge: icons.Badge,
	}
	if msg.Notification.Body != nil {
		req.body = *msg.Notification.Body
	}
	return req, nil
}

// String returns a short description for logs.
func (m *InboundMessage) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("message(id=%q, notification=%t, data=%d)", m.MessageID, m.Notification != nil, len(m.Data))
}
