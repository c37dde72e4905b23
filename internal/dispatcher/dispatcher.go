package dispatcher

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/pushd/internal/metrics"
	"github.com/jmylchreest/pushd/internal/push"
	"github.com/jmylchreest/pushd/internal/transport"
)

// Presenter renders a notification in the host's notification tray.
type Presenter interface {
	ShowNotification(ctx context.Context, title string, opts push.NotificationOptions) error
}

// State is the dispatcher lifecycle state.
type State int

const (
	// StateUninitialized means no handler has been registered yet.
	StateUninitialized State = iota
	// StateRegistered means the background-message handler is registered.
	StateRegistered
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// Dispatcher maps inbound push messages to display requests.
type Dispatcher struct {
	presenter Presenter
	icons     push.IconRefs
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu    sync.Mutex
	state State
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithIcons sets the icon and badge attached to every notification.
// Empty refs fall back to push.DefaultIconRef.
func WithIcons(icons push.IconRefs) Option {
	return func(d *Dispatcher) {
		if icons.Icon != "" {
			d.icons.Icon = icons.Icon
		}
		if icons.Badge != "" {
			d.icons.Badge = icons.Badge
		}
	}
}

// WithMetrics records delivery counters in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a Dispatcher rendering through presenter.
func New(presenter Presenter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		presenter: presenter,
		icons:     push.DefaultIconRefs(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Initialize registers the background-message handler with t.
// Only the first call has an effect; later calls return
// push.ErrAlreadyInitialized without touching t.
func (d *Dispatcher) Initialize(t transport.MessagingTransport) error {
	if isNil(t) {
		return fmt.Errorf("initialize dispatcher: nil transport")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateRegistered {
		return push.ErrAlreadyInitialized
	}

	t.OnBackgroundMessage(d.onBackgroundMessage)
	d.state = StateRegistered

	d.logger.Debug("background message handler registered", "icon", d.icons.Icon, "badge", d.icons.Badge)
	return nil
}

// onBackgroundMessage is the handler registered with the transport.
// Errors and panics are logged here and never propagate.
func (d *Dispatcher) onBackgroundMessage(ctx context.Context, msg *push.InboundMessage) {
	source := transport.SourceFrom(ctx)
	deliveryID := newDeliveryID()
	logger := d.logger.With("delivery_id", deliveryID, "transport", source)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic in background message handler", "panic", r)
		}
	}()

	d.metrics.Received(source)
	logger.Debug("received background message", "message", msg)

	if err := d.dispatch(ctx, msg); err != nil {
		if errors.Is(err, push.ErrMalformedPayload) {
			d.metrics.Malformed()
			logger.Warn("dropping background message", "error", err)
			return
		}
		d.metrics.PresenterError()
		logger.Warn("failed to show notification", "error", err)
	}
}

// dispatch builds the display request and issues exactly one presenter call.
func (d *Dispatcher) dispatch(ctx context.Context, msg *push.InboundMessage) error {
	req, err := push.BuildDisplayRequest(msg, d.icons)
	if err != nil {
		return err
	}

	if err := d.presenter.ShowNotification(ctx, req.Title(), req.Options()); err != nil {
		return fmt.Errorf("show notification %q: %w", req.Title(), err)
	}
	d.metrics.Displayed()
	return nil
}

// isNil reports whether t is nil or an interface holding a nil pointer.
func isNil(t transport.MessagingTransport) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func newDeliveryID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
