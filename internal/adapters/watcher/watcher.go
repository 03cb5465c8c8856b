// Package watcher reports manifest changes for watch-mode runs.
package watcher

import (
	"context"
	"iter"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"

	"go.cocoon.sh/cocoon/internal/core/ports"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 16

// Watcher implements manifest watching using fsnotify. It watches the
// manifest's parent directory rather than the file itself, so editors that
// save by replacing the file are still observed.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       ports.Logger
	path      string
	events    chan ports.WatchEvent
}

// New creates a manifest watcher.
func New(log ports.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		log:       log,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
	}, nil
}

// Start begins watching the manifest at path. It may be called once.
func (w *Watcher) Start(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to resolve manifest path"), "path", path)
	}
	w.path = abs

	if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to watch manifest directory"), "path", abs)
	}

	go w.processEvents(ctx)

	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator over manifest changes.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// processEvents filters raw directory events down to the watched manifest
// and forwards them as ports.WatchEvent.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// The directory watch reports every neighbor; only the
			// manifest itself is interesting.
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			watchEvent := convertEvent(event)
			if watchEvent == nil {
				continue
			}

			select {
			case w.events <- *watchEvent:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("manifest watch error: " + err.Error())
		}
	}
}

// convertEvent maps an fsnotify event onto a ports.WatchEvent. Chmod-only
// events carry no content change and are dropped.
func convertEvent(event fsnotify.Event) *ports.WatchEvent {
	path := event.Name

	if event.Op&fsnotify.Write == fsnotify.Write {
		return &ports.WatchEvent{Path: path, Operation: ports.OpWrite}
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		return &ports.WatchEvent{Path: path, Operation: ports.OpCreate}
	}

	if event.Op&fsnotify.Remove == fsnotify.Remove {
		return &ports.WatchEvent{Path: path, Operation: ports.OpRemove}
	}

	if event.Op&fsnotify.Rename == fsnotify.Rename {
		return &ports.WatchEvent{Path: path, Operation: ports.OpRename}
	}

	return nil
}
