package ports

import (
	"context"

	"go.cocoon.sh/cocoon/internal/core/domain"
)

// Store is the content addressable artifact store. Entries are immutable
// once built and shared across environments.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Ensure makes the entry described by plan present and returns its
	// absolute store path. A fully built entry returns immediately; otherwise
	// the artifact is materialized exactly once per hash, no matter how many
	// callers ask concurrently. A caller whose context is cancelled stops
	// waiting with domain.ErrActivationCancelled while the build itself
	// continues for the remaining callers.
	Ensure(ctx context.Context, plan domain.BuildPlan) (string, error)

	// Get returns the absolute store path for hash if the entry is fully
	// built, without triggering a build.
	Get(hash string) (string, bool)

	// RegisterSession records a live environment so its entries survive Collect.
	RegisterSession(rec domain.SessionRecord) error

	// ReleaseSession removes a session registration.
	ReleaseSession(environmentID string) error

	// Collect removes entries referenced by no live session and not listed
	// in keep. It returns the hashes that were (or in a dry run, would be)
	// removed.
	Collect(ctx context.Context, keep []string, dryRun bool) ([]string, error)
}
