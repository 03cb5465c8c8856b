package ports

import (
	"context"
	"iter"
)

// WatchOp classifies a manifest change.
type WatchOp uint8

const (
	// OpCreate indicates the manifest was created. Editors that save by
	// writing a temporary file and renaming it over the original report
	// saves this way.
	OpCreate WatchOp = iota
	// OpWrite indicates the manifest was modified in place.
	OpWrite
	// OpRemove indicates the manifest was removed.
	OpRemove
	// OpRename indicates the manifest was renamed away.
	OpRename
)

// WatchEvent is one observed change to the watched manifest.
type WatchEvent struct {
	// Path is the absolute path of the manifest that changed.
	Path string
	// Operation is the type of change that occurred.
	Operation WatchOp
}

// Watcher reports changes to a manifest file for watch-mode runs.
//
//go:generate go run go.uber.org/mock/mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start begins watching the manifest at path. Events stop when ctx
	// ends or Stop is called.
	Start(ctx context.Context, path string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Events returns an iterator over manifest changes. It ends when the
	// watcher shuts down.
	Events() iter.Seq[WatchEvent]
}
