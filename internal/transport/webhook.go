package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/pushd/internal/metrics"
)

// DefaultMaxBodyBytes caps the size of a webhook payload.
const DefaultMaxBodyBytes = 64 << 10

// WebhookOptions configures the HTTP webhook transport.
type WebhookOptions struct {
	Addr         string
	APIKey       string // if set, requests must send "Authorization: key=<APIKey>"
	MaxBodyBytes int64
}

// Webhook receives push messages as HTTP POST requests.
type Webhook struct {
	handlerSlot

	opts    WebhookOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
	router  chi.Router
}

// NewWebhook creates a Webhook. m may be nil, in which case /metrics and
// /v1/status are not served.
func NewWebhook(opts WebhookOptions, m *metrics.Metrics, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	w := &Webhook{opts: opts, logger: logger, metrics: m}
	w.router = w.routes()
	return w
}

// Name returns "webhook".
func (w *Webhook) Name() string {
	return "webhook"
}

// Handler returns the HTTP handler serving the webhook routes.
func (w *Webhook) Handler() http.Handler {
	return w.router
}

func (w *Webhook) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	if w.metrics != nil {
		r.Method(http.MethodGet, "/metrics", w.metrics.Handler())
		r.Get("/v1/status", w.handleStatus)
	}

	r.Group(func(r chi.Router) {
		r.Use(w.authenticate)
		r.Post("/v1/messages", w.handleMessage)
	})
	return r
}

func (w *Webhook) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if w.opts.APIKey != "" {
			want := []byte("key=" + w.opts.APIKey)
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(want, got) != 1 {
				writeJSON(rw, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next.ServeHTTP(rw, r)
	})
}

func (w *Webhook) handleMessage(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, w.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(rw, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
			return
		}
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	// The notification outlives the request if the client disconnects.
	w.deliver(context.WithoutCancel(r.Context()), w.Name(), body, w.logger)

	writeJSON(rw, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (w *Webhook) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, w.metrics.Snapshot())
}

// Run serves HTTP on opts.Addr until ctx is cancelled.
func (w *Webhook) Run(ctx context.Context) error {
	if w.get() == nil {
		return &Error{Transport: w.Name(), Message: "cannot start", Err: ErrNoHandler}
	}

	srv := &http.Server{
		Addr:              w.opts.Addr,
		Handler:           w.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		w.logger.Info("webhook listening", "addr", w.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return &Error{Transport: w.Name(), Message: "server failed", Err: err}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return &Error{Transport: w.Name(), Message: "shutdown failed", Err: err}
	}
	return nil
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
