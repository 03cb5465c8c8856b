package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

// staleStagingAge is how old an abandoned staging directory must be before
// the sweep removes it. Directories younger than this may belong to a
// build still running in another process.
const staleStagingAge = 24 * time.Hour

// Collect removes every entry that is neither pinned by a live session nor
// listed in keep. Entries whose per-hash lock is held are skipped, so a
// build in flight is never swept. The returned hashes are sorted.
func (s *Store) Collect(ctx context.Context, keep []string, dryRun bool) ([]string, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, hash := range keep {
		keepSet[hash] = struct{}{}
	}

	live, stale, err := s.liveSessions()
	if err != nil {
		return nil, err
	}
	for _, rec := range live {
		for _, hash := range rec.StoreHashes {
			keepSet[hash] = struct{}{}
		}
	}

	entries, err := os.ReadDir(domain.StorePath(s.root))
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCollectFailed.Error())
	}

	var removed []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCollectFailed.Error())
		}

		name := entry.Name()
		if !isStoreHash(name) {
			continue
		}
		if _, ok := keepSet[name]; ok {
			continue
		}

		if dryRun {
			removed = append(removed, name)
			continue
		}

		release, ok, err := s.tryLockEntry(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			// The lock holder is building this entry right now
			continue
		}
		err = os.RemoveAll(filepath.Join(domain.StorePath(s.root), name))
		release()
		if err != nil {
			collectErr := zerr.Wrap(err, domain.ErrCollectFailed.Error())
			return nil, zerr.With(collectErr, "hash", name)
		}
		removed = append(removed, name)
	}
	sort.Strings(removed)

	if !dryRun {
		s.sweepStale(stale)
	}

	s.log.Info("store sweep removed " + strconv.Itoa(len(removed)) + " entries")
	return removed, nil
}

// sweepStale removes session records of dead processes and staging
// directories old enough to be abandoned. Failures are logged, not
// returned, so a sweep always finishes.
func (s *Store) sweepStale(staleSessions []string) {
	for _, path := range staleSessions {
		if err := removeIfExists(path); err != nil {
			s.log.Warn("failed to remove stale session record: " + err.Error())
		}
	}

	entries, err := os.ReadDir(domain.StagingPath(s.root))
	if err != nil {
		s.log.Warn("failed to read staging directory: " + err.Error())
		return
	}
	cutoff := time.Now().Add(-staleStagingAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		full := filepath.Join(domain.StagingPath(s.root), entry.Name())
		if err := os.RemoveAll(full); err != nil {
			s.log.Warn("failed to remove stale staging dir: " + err.Error())
		}
	}
}

// tryLockEntry takes the per-hash lock without blocking. It reports false
// when another holder has it.
func (s *Store) tryLockEntry(hash string) (func(), bool, error) {
	path := filepath.Join(domain.LocksPath(s.root), hash+".lock")

	//nolint:gosec // lock files live under the store root
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, domain.PrivateFilePerm)
	if err != nil {
		lockErr := zerr.Wrap(err, domain.ErrStoreLockFailed.Error())
		return nil, false, zerr.With(lockErr, "hash", hash)
	}

	ok, err := tryLockFile(f)
	if err != nil {
		_ = f.Close()
		lockErr := zerr.Wrap(err, domain.ErrStoreLockFailed.Error())
		return nil, false, zerr.With(lockErr, "hash", hash)
	}
	if !ok {
		_ = f.Close()
		return nil, false, nil
	}

	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, true, nil
}

// isStoreHash reports whether name looks like a store entry hash. The
// staging directory and any foreign files under the store are excluded by
// this check.
func isStoreHash(name string) bool {
	if len(name) != 64 {
		return false
	}
	for _, r := range name {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
