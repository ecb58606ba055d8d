package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/metricsd/metricsd/pkg/logging"
)

// WatcherConfig contains configuration for the file watcher.
type WatcherConfig struct {
	// Root is the directory tree to watch.
	Root string

	// Extensions is the list of file extensions to record (e.g., ".md").
	// Empty records every file.
	Extensions []string

	// SkipHidden ignores files and directories whose name starts with a dot.
	SkipHidden bool
}

// Watcher feeds a Recorder from fsnotify events under a directory tree.
// New subdirectories are watched as they appear.
type Watcher struct {
	cfg     WatcherConfig
	rec     *Recorder
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher. Nothing is watched until Run.
func NewWatcher(cfg WatcherConfig, rec *Recorder, logger *slog.Logger) (*Watcher, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", cfg.Root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		rec:     rec,
		logger:  logging.Component(logger, "watcher"),
		watcher: fsw,
	}, nil
}

// Run seeds the recorder with the files already present, then records
// events until ctx is cancelled. The fsnotify watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addTree(w.cfg.Root, false); err != nil {
		return err
	}
	w.logger.Info("file watcher started", "root", w.cfg.Root, "files", w.rec.Known())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// addTree watches dir and its subdirectories. Files found are seeded, or
// recorded as creates when the tree appeared while running.
func (w *Watcher) addTree(dir string, asCreate bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if path != dir && w.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if !w.matches(path) {
			return nil
		}
		// A file that fails to record must not stop the rest of the tree
		// from being watched.
		if asCreate {
			if err := w.rec.Record(Event{Op: OpCreate, Path: path, Size: sizeOf(path), Time: time.Now()}); err != nil {
				w.logger.Warn("failed to record file event", "path", path, "op", OpCreate, "error", err)
			}
			return nil
		}
		if err := w.rec.Seed(path); err != nil {
			w.logger.Warn("failed to seed file", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if w.hidden(path) {
		return
	}

	var ev Event
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path, true); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
		ev = Event{Op: OpCreate, Path: path, Size: sizeOf(path)}
	case event.Has(fsnotify.Write):
		ev = Event{Op: OpModify, Path: path, Size: sizeOf(path)}
	case event.Has(fsnotify.Remove):
		ev = Event{Op: OpDelete, Path: path, Size: -1}
	case event.Has(fsnotify.Rename):
		ev = Event{Op: OpRename, Path: path, Size: -1}
	default:
		// Chmod only
		return
	}

	if !w.matches(path) {
		return
	}
	ev.Time = time.Now()

	w.logger.Debug("file event detected", "path", path, "op", event.Op.String())
	if err := w.rec.Record(ev); err != nil {
		w.logger.Warn("failed to record file event", "path", path, "op", ev.Op, "error", err)
	}
}

func (w *Watcher) matches(path string) bool {
	if len(w.cfg.Extensions) == 0 {
		return true
	}
	return slices.Contains(w.cfg.Extensions, strings.ToLower(filepath.Ext(path)))
}

// hidden reports whether any path element below the root starts with a dot.
func (w *Watcher) hidden(path string) bool {
	if !w.cfg.SkipHidden {
		return false
	}
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func sizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
