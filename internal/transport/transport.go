// Package transport provides the messaging transports that deliver push
// messages to a registered background-message handler.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/pushd/internal/push"
)

// Handler is invoked once per received message. A nil msg means the raw
// payload could not be decoded.
type Handler func(ctx context.Context, msg *push.InboundMessage)

// MessagingTransport accepts a background-message handler.
type MessagingTransport interface {
	OnBackgroundMessage(h Handler)
}

// Runner is a transport with its own receive loop.
type Runner interface {
	MessagingTransport

	// Name returns the transport identifier (e.g., "webhook", "nats").
	Name() string

	// Run receives messages until ctx is cancelled.
	Run(ctx context.Context) error
}

type sourceKey struct{}

// WithSource annotates ctx with the name of the delivering transport.
func WithSource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sourceKey{}, name)
}

// SourceFrom returns the transport name stored by WithSource.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok {
		return s
	}
	return "unknown"
}

// Error represents a transport-related error.
type Error struct {
	Transport string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Transport + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Transport + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoHandler is returned by Run when no handler was registered.
var ErrNoHandler = errors.New("no background message handler registered")

// handlerSlot stores the registered handler for a transport.
type handlerSlot struct {
	mu      sync.RWMutex
	handler Handler
}

// OnBackgroundMessage registers h, replacing any previous handler.
func (s *handlerSlot) OnBackgroundMessage(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *handlerSlot) get() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// deliver decodes raw and invokes the handler. Undecodable payloads are
// delivered as nil so the handler accounts for them.
func (s *handlerSlot) deliver(ctx context.Context, name string, raw []byte, logger *slog.Logger) {
	h := s.get()
	if h == nil {
		logger.Warn("dropping message: no handler registered", "transport", name)
		return
	}

	msg, err := push.Decode(raw)
	if err != nil {
		logger.Debug("failed to decode message", "transport", name, "error", err)
	}
	h(WithSource(ctx, name), msg)
}

// Mux fans in several transports behind a single handler registration.
type Mux struct {
	runners []Runner
	logger  *slog.Logger
}

// NewMux creates a Mux over the given runners.
func NewMux(logger *slog.Logger, runners ...Runner) *Mux {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mux{runners: runners, logger: logger}
}

// Name returns "mux".
func (m *Mux) Name() string {
	return "mux"
}

// Len returns the number of child transports.
func (m *Mux) Len() int {
	return len(m.runners)
}

// OnBackgroundMessage forwards h to every child transport.
func (m *Mux) OnBackgroundMessage(h Handler) {
	for _, r := range m.runners {
		r.OnBackgroundMessage(h)
	}
}

// Run runs all child transports and returns the first error.
// The remaining transports are stopped when one fails.
func (m *Mux) Run(ctx context.Context) error {
	if len(m.runners) == 0 {
		return &Error{Transport: "mux", Message: "no transports enabled"}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, r := range m.runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			m.logger.Info("transport started", "transport", r.Name())
			err := r.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("transport stopped", "transport", r.Name(), "error", err)
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			m.logger.Info("transport stopped", "transport", r.Name())
		}(r)
	}
	wg.Wait()

	return firstErr
}
