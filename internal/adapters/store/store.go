// Package store implements the content addressable artifact store.
//
// Entries live in one directory per content hash. An entry is only ever
// observed in two states: absent, or fully built with a marker file written
// strictly after the artifact and its metadata. Concurrent callers
// coordinate through an in-process singleflight group and a per-hash
// advisory file lock, so every hash is materialized at most once no matter
// how many processes ask.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.Store = (*Store)(nil)

// Store implements ports.Store on the local filesystem.
type Store struct {
	root    string
	fetcher ports.Fetcher
	recipes ports.RecipeRunner
	log     ports.Logger

	group  singleflight.Group
	builds atomic.Int64
	hits   atomic.Int64
}

// New creates a Store rooted at root, creating the directory layout if
// needed.
func New(root string, fetcher ports.Fetcher, recipes ports.RecipeRunner, log ports.Logger) (*Store, error) {
	dirs := []string{
		domain.StorePath(root),
		domain.StagingPath(root),
		domain.LocksPath(root),
		domain.SessionsPath(root),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			createErr := zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
			return nil, zerr.With(createErr, "dir", dir)
		}
	}

	return &Store{
		root:    root,
		fetcher: fetcher,
		recipes: recipes,
		log:     log,
	}, nil
}

// Ensure makes the entry described by plan present and returns its path.
// Concurrent callers for the same hash observe a single build. A caller
// whose context is cancelled stops waiting while the build continues for
// the remaining callers.
func (s *Store) Ensure(ctx context.Context, plan domain.BuildPlan) (string, error) {
	if path, ok := s.Get(plan.Hash); ok {
		s.hits.Add(1)
		return path, nil
	}

	// The build itself runs detached from this caller's context: a
	// cancelled waiter must not abort the build for other callers.
	buildCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(plan.Hash, func() (any, error) {
		return s.materialize(buildCtx, plan)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		cancelErr := zerr.Wrap(ctx.Err(), domain.ErrActivationCancelled.Error())
		return "", zerr.With(cancelErr, "hash", plan.Hash)
	}
}

// Get returns the path of a fully built entry without triggering a build.
func (s *Store) Get(hash string) (string, bool) {
	entryDir := s.entryPath(hash)
	if _, err := os.Stat(filepath.Join(entryDir, domain.BuiltMarkerName)); err != nil {
		return "", false
	}
	if _, err := os.Stat(filepath.Join(entryDir, domain.EntryMetaFileName)); err != nil {
		// Marked built but metadata is gone; materialize will quarantine it
		return "", false
	}
	return entryDir, true
}

// materialize builds one entry under the per-hash file lock. It re-checks
// the marker after acquiring the lock, so a build finished by another
// process while we waited is returned as-is.
func (s *Store) materialize(ctx context.Context, plan domain.BuildPlan) (string, error) {
	unlock, err := s.lockEntry(plan.Hash)
	if err != nil {
		return "", err
	}
	defer unlock()

	entryDir := s.entryPath(plan.Hash)
	if path, ok := s.Get(plan.Hash); ok {
		s.hits.Add(1)
		return path, nil
	}

	if err := s.quarantineIfCorrupt(plan.Hash); err != nil {
		return "", err
	}

	s.builds.Add(1)

	stagingDir, err := os.MkdirTemp(domain.StagingPath(s.root), stagingPrefix(plan.Hash))
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	defer func() {
		if _, statErr := os.Stat(stagingDir); statErr == nil {
			_ = os.RemoveAll(stagingDir)
		}
	}()

	if err := s.runMaterializer(ctx, plan, stagingDir); err != nil {
		return "", zerr.With(err, "hash", plan.Hash)
	}

	if err := s.writeMeta(plan, stagingDir); err != nil {
		return "", err
	}

	// A hash-named directory without a marker is a crashed leftover
	if _, statErr := os.Stat(entryDir); statErr == nil {
		if err := os.RemoveAll(entryDir); err != nil {
			return "", zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
		}
	}
	if err := os.Rename(stagingDir, entryDir); err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	// The marker goes last: an entry is built only once this succeeds
	marker := filepath.Join(entryDir, domain.BuiltMarkerName)
	if err := os.WriteFile(marker, nil, domain.FilePerm); err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	s.log.Debug("store entry built: " + plan.Descriptor.Ref() + " (" + plan.Hash + ")")
	return entryDir, nil
}

// runMaterializer dispatches on the plan's source kind.
func (s *Store) runMaterializer(ctx context.Context, plan domain.BuildPlan, stagingDir string) error {
	switch plan.Source.Kind {
	case domain.SourceKindFetch:
		return s.fetcher.Fetch(ctx, plan.Source, stagingDir)
	case domain.SourceKindRecipe:
		return s.recipes.Run(ctx, plan, stagingDir)
	default:
		return zerr.With(domain.ErrUnknownSourceKind, "kind", string(plan.Source.Kind))
	}
}

// quarantineIfCorrupt moves aside an entry that carries a marker but lost
// its metadata, so it can be rebuilt from scratch.
func (s *Store) quarantineIfCorrupt(hash string) error {
	entryDir := s.entryPath(hash)
	if _, err := os.Stat(filepath.Join(entryDir, domain.BuiltMarkerName)); err != nil {
		return nil
	}
	if _, err := os.Stat(filepath.Join(entryDir, domain.EntryMetaFileName)); err == nil {
		return nil
	}

	corrupt := zerr.With(domain.ErrStoreCorrupt, "hash", hash)
	s.log.Warn(corrupt.Error() + ": quarantining " + hash)

	quarantine := filepath.Join(domain.StagingPath(s.root), "quarantine-"+hash)
	_ = os.RemoveAll(quarantine)
	if err := os.Rename(entryDir, quarantine); err != nil {
		return zerr.Wrap(err, corrupt.Error())
	}
	return nil
}

// writeMeta records the entry metadata inside the staging directory before
// the rename, so a visible entry always carries it.
func (s *Store) writeMeta(plan domain.BuildPlan, stagingDir string) error {
	meta := domain.EntryMeta{
		Hash:      plan.Hash,
		Name:      plan.Descriptor.Name.String(),
		Version:   plan.Descriptor.Version.String(),
		Source:    plan.Source.Identity(),
		DepHashes: plan.DepHashes,
		BuiltAt:   time.Now().UTC(),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	path := filepath.Join(stagingDir, domain.EntryMetaFileName)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	return nil
}

// lockEntry takes the per-hash advisory lock, blocking until the current
// holder releases it. The returned function releases and closes the lock.
func (s *Store) lockEntry(hash string) (func(), error) {
	path := filepath.Join(domain.LocksPath(s.root), hash+".lock")

	//nolint:gosec // lock files live under the store root
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, domain.PrivateFilePerm)
	if err != nil {
		lockErr := zerr.Wrap(err, domain.ErrStoreLockFailed.Error())
		return nil, zerr.With(lockErr, "hash", hash)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		lockErr := zerr.Wrap(err, domain.ErrStoreLockFailed.Error())
		return nil, zerr.With(lockErr, "hash", hash)
	}

	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, nil
}

func (s *Store) entryPath(hash string) string {
	return filepath.Join(domain.StorePath(s.root), hash)
}

// stagingPrefix derives a recognizable temp dir prefix from the hash.
func stagingPrefix(hash string) string {
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return hash + "-"
}

// removeIfExists is shared by session and sweep cleanup paths.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
