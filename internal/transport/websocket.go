package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/pushd/internal/push"
)

// WebSocketOptions configures the WebSocket gateway transport.
type WebSocketOptions struct {
	URL          string
	Identity     push.Identity
	RetryBackoff time.Duration
}

// WebSocket receives push messages as text frames from a push gateway.
type WebSocket struct {
	handlerSlot

	opts   WebSocketOptions
	logger *slog.Logger
	dialer *websocket.Dialer
}

// NewWebSocket creates a WebSocket transport.
func NewWebSocket(opts WebSocketOptions, logger *slog.Logger) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Second
	}
	return &WebSocket{
		opts:   opts,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Name returns "websocket".
func (w *WebSocket) Name() string {
	return "websocket"
}

// header carries the transport identity to the gateway.
func (w *WebSocket) header() http.Header {
	h := http.Header{}
	id := w.opts.Identity
	if id.APIKey != "" {
		h.Set("Authorization", "key="+id.APIKey)
	}
	if id.SenderID != "" {
		h.Set("X-Sender-Id", id.SenderID)
	}
	if id.AppID != "" {
		h.Set("X-App-Id", id.AppID)
	}
	if id.ProjectID != "" {
		h.Set("X-Project-Id", id.ProjectID)
	}
	return h
}

// Run connects to the gateway and reconnects after failures until ctx is
// cancelled.
func (w *WebSocket) Run(ctx context.Context) error {
	if w.get() == nil {
		return &Error{Transport: w.Name(), Message: "cannot start", Err: ErrNoHandler}
	}

	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.logger.Warn("websocket session ended, reconnecting", "url", w.opts.URL, "error", err, "backoff", w.opts.RetryBackoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.opts.RetryBackoff):
		}
	}
}

// session runs one connection until it fails or ctx is cancelled.
func (w *WebSocket) session(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.opts.URL, w.header())
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(DefaultMaxBodyBytes)
	w.logger.Info("websocket connected", "url", w.opts.URL)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		w.deliver(ctx, w.Name(), data, w.logger)
	}
}
