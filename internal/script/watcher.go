// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileIDPrefix marks scripts that belong to a watched directory.
const FileIDPrefix = "file:"

// FileID returns the registry id for a script file.
func FileID(path string) string {
	return FileIDPrefix + strings.TrimSuffix(filepath.Base(path), ".go")
}

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

// DirWatcher keeps the *.go files of one directory installed in a
// registry. New files are installed, edited files are replaced and deleted
// files are removed.
type DirWatcher struct {
	dir      string
	registry *Registry
	logger   *slog.Logger
	debounce time.Duration
	enable   bool

	mu      sync.Mutex
	pending map[string]time.Time // path -> last change
	failed  map[string]string    // path -> source that did not compile
}

// WatcherOption configures a DirWatcher.
type WatcherOption func(*DirWatcher)

// WithDebounce sets how long a file must be quiet before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *DirWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithAutoEnable enables scripts the first time they are installed from
// the directory.
func WithAutoEnable(enable bool) WatcherOption {
	return func(w *DirWatcher) { w.enable = enable }
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *DirWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewDirWatcher creates a watcher for dir.
func NewDirWatcher(dir string, r *Registry, opts ...WatcherOption) *DirWatcher {
	w := &DirWatcher{
		dir:      dir,
		registry: r,
		logger:   slog.Default(),
		debounce: 250 * time.Millisecond,
		pending:  make(map[string]time.Time),
		failed:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sync installs, replaces and removes scripts so the registry matches the
// directory. Load errors of single files are logged, not returned.
func (w *DirWatcher) Sync() error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return fmt.Errorf("create scripts dir: %w", err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read scripts dir: %w", err)
	}

	present := make(map[string]bool)
	for _, de := range entries {
		path := filepath.Join(w.dir, de.Name())
		if de.IsDir() || !isScriptFile(path) {
			continue
		}
		present[FileID(path)] = true
		w.load(path)
	}

	for _, s := range w.registry.List() {
		if strings.HasPrefix(s.ID, FileIDPrefix) && !present[s.ID] {
			w.unload(s.ID)
		}
	}
	w.mu.Lock()
	for path := range w.failed {
		if !present[FileID(path)] {
			delete(w.failed, path)
		}
	}
	w.mu.Unlock()
	return nil
}

// Run syncs once, then follows directory changes until ctx is done.
func (w *DirWatcher) Run(ctx context.Context) error {
	if err := w.Sync(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isScriptFile(event.Name) {
				continue
			}
			// Remove and rename are confirmed by a stat in flush.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("script watcher error", "error", err)

		case <-ticker.C:
			w.flush(time.Now())
		}
	}
}

// flush handles every pending path that has been quiet for the debounce
// interval.
func (w *DirWatcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			w.forgetFailure(path)
			w.unload(FileID(path))
			continue
		}
		w.load(path)
	}
}

func (w *DirWatcher) load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("read script failed", "path", path, "error", err)
		return
	}
	source := string(data)
	id := FileID(path)

	w.mu.Lock()
	lastFailed, seen := w.failed[path]
	w.mu.Unlock()
	if seen && lastFailed == source {
		return
	}

	existing, err := w.registry.Get(id)
	switch {
	case err == nil && existing.Source == source:
		w.forgetFailure(path)
		return
	case err == nil:
		if _, err := w.registry.Replace(id, source); err != nil {
			w.logger.Warn("script reload failed", "path", path, "error", err)
			w.registry.RecordError(id, err)
			w.recordFailure(path, source)
			return
		}
	default:
		if _, err := w.registry.InstallNamed(id, filepath.Base(path), source, nil); err != nil {
			w.logger.Warn("script load failed", "path", path, "error", err)
			w.recordFailure(path, source)
			return
		}
		if w.enable {
			_ = w.registry.SetEnabled(id, true)
		}
	}
	w.forgetFailure(path)
}

// recordFailure remembers source so the same broken file is not compiled
// again until it changes.
func (w *DirWatcher) recordFailure(path, source string) {
	w.mu.Lock()
	w.failed[path] = source
	w.mu.Unlock()
}

func (w *DirWatcher) forgetFailure(path string) {
	w.mu.Lock()
	delete(w.failed, path)
	w.mu.Unlock()
}

func (w *DirWatcher) unload(id string) {
	if err := w.registry.Remove(id); err != nil && !errors.Is(err, ErrNotFound) {
		w.logger.Warn("script unload failed", "id", id, "error", err)
	}
}

func isScriptFile(path string) bool {
	base := filepath.Base(path)
	return filepath.Ext(base) == ".go" &&
		!strings.HasSuffix(base, "_test.go") &&
		!strings.HasPrefix(base, ".")
}
