package presenter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pushd/internal/push"
)

// Writer formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// shownEntry is the serialized form of one notification.
type shownEntry struct {
	Title   string                   `json:"title" yaml:"title"`
	Options push.NotificationOptions `json:"options" yaml:"options"`
}

// WriterPresenter writes each notification to an io.Writer, one JSON line or
// one YAML document per notification.
type WriterPresenter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

// NewWriterPresenter creates a WriterPresenter. A nil writer means stdout.
func NewWriterPresenter(w io.Writer, format string) (*WriterPresenter, error) {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &WriterPresenter{w: w, format: format}, nil
}

// ShowNotification writes the notification.
func (p *WriterPresenter) ShowNotification(_ context.Context, title string, opts push.NotificationOptions) error {
	entry := shownEntry{Title: title, Options: opts}

	var (
		data []byte
		err  error
	)
	switch p.format {
	case FormatYAML:
		data, err = yaml.Marshal(entry)
		if err == nil {
			data = append([]byte("---\n"), data...)
		}
	default:
		data, err = json.Marshal(entry)
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = p.w.Write(data)
	return err
}
