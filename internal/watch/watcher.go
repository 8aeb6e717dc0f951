// Package watch rebuilds when library input files change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/refbuilder/internal/logfields"
)

// DefaultDebounce is used when no debounce window is configured.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the sorted set of paths that changed during one debounce window.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher watches a set of files through their parent directories (editors replace
// files by rename, which drops watches on the file itself) and reports debounced changes.
type Watcher struct {
	files    map[string]bool
	ignore   []string
	debounce time.Duration
	onChange ChangeFunc
}

// New creates a watcher over paths. Ignore patterns use doublestar syntax and are matched
// against a file's path relative to its watched directory, never against the directories
// above it.
func New(paths []string, debounce time.Duration, ignore []string, onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch: change callback is required")
	}
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", p)
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		files:    make(map[string]bool),
		ignore:   ignore,
		debounce: debounce,
		onChange: onChange,
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", p, err)
		}
		w.files[abs] = true
	}
	return w, nil
}

// watchDirs returns the directories that must be registered with fsnotify.
func (w *Watcher) watchDirs() []string {
	set := make(map[string]bool)
	for f := range w.files {
		set[filepath.Dir(f)] = true
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Relevant reports whether a change to name should trigger a rebuild.
func (w *Watcher) Relevant(name string) bool {
	if !w.files[name] {
		return false
	}
	// Watches are not recursive, so the path relative to the watched directory is the base name.
	base := filepath.Base(name)
	for _, p := range w.ignore {
		if ok, _ := doublestar.Match(p, base); ok {
			return false
		}
	}
	return true
}

// Run watches until ctx is canceled. The callback runs on the watch goroutine, so
// changes arriving during a rebuild are batched into the next window.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	dirs := w.watchDirs()
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", d, err)
		}
	}
	slog.Info("Watching for changes", logfields.Count(len(dirs)), slog.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if !w.Relevant(event.Name) {
				continue
			}
			slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			pending[event.Name] = true
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			w.onChange(ctx, changed)
		}
	}
}
