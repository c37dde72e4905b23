package transport

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSpoolSettle is how long a spool file must go unmodified before it
// is claimed.
const DefaultSpoolSettle = 500 * time.Millisecond

// Spool receives push messages as *.json files dropped into a directory.
// Producers should write to a dot-prefixed temporary name and rename it into
// place. Files written in place are claimed only after they have been left
// unmodified for the settle window. Each file is removed once delivered.
type Spool struct {
	handlerSlot

	dir    string
	settle time.Duration
	logger *slog.Logger
}

// NewSpool creates a Spool watching dir.
func NewSpool(dir string, logger *slog.Logger) *Spool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spool{dir: dir, settle: DefaultSpoolSettle, logger: logger}
}

// Name returns "spool".
func (s *Spool) Name() string {
	return "spool"
}

// Run delivers files already present, then watches for new ones until ctx
// is cancelled.
func (s *Spool) Run(ctx context.Context) error {
	if s.get() == nil {
		return &Error{Transport: s.Name(), Message: "cannot start", Err: ErrNoHandler}
	}
	if s.settle <= 0 {
		s.settle = DefaultSpoolSettle
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return &Error{Transport: s.Name(), Message: "failed to create spool directory", Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &Error{Transport: s.Name(), Message: "failed to create watcher", Err: err}
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return &Error{Transport: s.Name(), Message: "failed to watch " + s.dir, Err: err}
	}
	s.logger.Info("spool watching", "dir", s.dir, "settle", s.settle)

	// path -> time of the last event seen for it
	pending := make(map[string]time.Time)
	if err := s.scan(pending); err != nil {
		return err
	}
	s.flush(ctx, pending, time.Now())

	ticker := time.NewTicker(s.settle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSpoolFile(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case now := <-ticker.C:
			s.flush(ctx, pending, now)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("spool watcher error", "error", err)
		}
	}
}

// scan queues spool files present before the watch started.
func (s *Spool) scan(pending map[string]time.Time) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &Error{Transport: s.Name(), Message: "failed to read spool directory", Err: err}
	}
	for _, e := range entries {
		if !e.IsDir() && isSpoolFile(e.Name()) {
			pending[filepath.Join(s.dir, e.Name())] = time.Time{}
		}
	}
	return nil
}

// flush processes pending files that saw no event for the settle window,
// oldest name first.
func (s *Spool) flush(ctx context.Context, pending map[string]time.Time, now time.Time) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for path, last := range pending {
		if now.Sub(last) >= s.settle {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if s.process(ctx, path, now) {
			pending[path] = now
			continue
		}
		delete(pending, path)
	}
}

// process reads, removes and delivers one file. It reports true when the
// file was modified within the settle window and must be retried. Files that
// vanished or are still empty are dropped until a later event.
func (s *Spool) process(ctx context.Context, path string, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to stat spool file", "path", path, "error", err)
		}
		return false
	}
	if info.Size() == 0 {
		return false
	}
	if now.Sub(info.ModTime()) < s.settle {
		return true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read spool file", "path", path, "error", err)
		}
		return false
	}

	if err := os.Remove(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove spool file, skipping", "path", path, "error", err)
		}
		return false
	}

	s.deliver(ctx, s.Name(), data, s.logger)
	return false
}

func isSpoolFile(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".json")
}
