// Package watch recompiles a schema whenever its sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Build runs one compile pass and returns its diagnostics.
type Build func() []error

// Watcher recompiles on changes to .mux files under the root file's
// directory tree and to the extra files (annotation overlays).
type Watcher struct {
	root   string // entry file, absolute
	extra  []string
	build  Build
	logger zerolog.Logger
}

// New creates a watcher for root. extra lists files outside the .mux
// extension that should also trigger a rebuild.
func New(root string, extra []string, build Build, logger zerolog.Logger) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	w := &Watcher{root: absRoot, build: build, logger: logger}
	for _, path := range extra {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		w.extra = append(w.extra, abs)
	}
	return w, nil
}

// Run builds once, then blocks rebuilding on every relevant change
// until ctx is canceled. Watching directories rather than files keeps
// editors that save atomically (write temp, rename) visible.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, filepath.Dir(w.root)); err != nil {
		return err
	}
	for _, path := range w.extra {
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
	}
	w.logger.Info().Str("root", w.root).Msg("watching for changes")

	w.rebuild(w.root)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// New subdirectory, imports may land there.
					if err := w.addTree(watcher, event.Name); err != nil {
						w.logger.Error().Err(err).Msg("watching new directory")
					}
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("source changed")
			w.rebuild(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) rebuild(trigger string) {
	start := time.Now()
	errs := w.build()

	evt := w.logger.Info()
	if len(errs) > 0 {
		evt = w.logger.Error()
	}
	evt.Str("trigger", trigger).
		Dur("duration", time.Since(start)).
		Int("errors", len(errs)).
		Msg("build finished")
}

// relevant reports whether a change to name should trigger a rebuild.
func (w *Watcher) relevant(name string) bool {
	if filepath.Ext(name) == ".mux" {
		return true
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, path := range w.extra {
		if abs == path {
			return true
		}
	}
	return false
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch directory %s: %w", path, err)
		}
		return nil
	})
}
