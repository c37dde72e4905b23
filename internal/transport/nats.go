package transport

import (
	"context"
	"log/slog"

	natspkg "github.com/nats-io/nats.go"
)

// DefaultNATSSubject is the subject subscribed to when none is configured.
const DefaultNATSSubject = "pushd.messages"

// NATSOptions configures the NATS transport.
type NATSOptions struct {
	URL     string
	Subject string
	Queue   string // optional queue group
}

// NATS receives push messages from a NATS subject.
type NATS struct {
	handlerSlot

	opts   NATSOptions
	logger *slog.Logger
}

// NewNATS creates a NATS transport.
func NewNATS(opts NATSOptions, logger *slog.Logger) *NATS {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.URL == "" {
		opts.URL = natspkg.DefaultURL
	}
	if opts.Subject == "" {
		opts.Subject = DefaultNATSSubject
	}
	return &NATS{opts: opts, logger: logger}
}

// Name returns "nats".
func (n *NATS) Name() string {
	return "nats"
}

// Run subscribes to the subject until ctx is cancelled.
func (n *NATS) Run(ctx context.Context) error {
	if n.get() == nil {
		return &Error{Transport: n.Name(), Message: "cannot start", Err: ErrNoHandler}
	}

	nc, err := natspkg.Connect(n.opts.URL,
		natspkg.Name("pushd"),
		natspkg.MaxReconnects(-1),
		natspkg.DisconnectErrHandler(func(_ *natspkg.Conn, err error) {
			if err != nil {
				n.logger.Warn("nats disconnected", "error", err)
			}
		}),
		natspkg.ReconnectHandler(func(c *natspkg.Conn) {
			n.logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return &Error{Transport: n.Name(), Message: "failed to connect", Err: err}
	}
	defer nc.Close()

	handler := func(msg *natspkg.Msg) {
		n.deliver(ctx, n.Name(), msg.Data, n.logger)
	}

	var sub *natspkg.Subscription
	if n.opts.Queue != "" {
		sub, err = nc.QueueSubscribe(n.opts.Subject, n.opts.Queue, handler)
	} else {
		sub, err = nc.Subscribe(n.opts.Subject, handler)
	}
	if err != nil {
		return &Error{Transport: n.Name(), Message: "failed to subscribe", Err: err}
	}
	n.logger.Info("nats subscribed", "url", n.opts.URL, "subject", n.opts.Subject, "queue", n.opts.Queue)

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		n.logger.Warn("failed to unsubscribe", "subject", n.opts.Subject, "error", err)
	}
	return nil
}
