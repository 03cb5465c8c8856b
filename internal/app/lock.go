package app

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"slices"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

// lockfileVersion is the current cocoon.lock format version.
const lockfileVersion = 1

// resolve produces the closure for the manifest. Unless noLock is set it
// first tries to restore the previous resolution from the lockfile, and
// records a fresh resolution back to it. The second return reports whether
// the lockfile supplied the closure.
func (a *App) resolve(ctx context.Context, mf *domain.Manifest, manifestPath string, noLock bool) (*domain.ResolvedClosure, bool, error) {
	var digest string
	lockPath := filepath.Join(filepath.Dir(manifestPath), domain.LockfileName)

	if !noLock {
		var err error
		digest, err = a.manifests.Digest(manifestPath)
		if err != nil {
			return nil, false, zerr.Wrap(err, "failed to digest manifest")
		}
		closure, lockErr := a.closureFromLock(ctx, mf, lockPath, digest)
		switch {
		case lockErr == nil && closure != nil:
			a.log.Debug("resolution restored from " + domain.LockfileName)
			return closure, true, nil
		case errors.Is(lockErr, domain.ErrLockfileStale):
			a.log.Warn("lockfile is stale")
		case lockErr != nil:
			a.log.Warn("lockfile unusable: " + lockErr.Error())
		}
	}

	closure, err := a.resolver.Resolve(ctx, mf.Requests())
	if err != nil {
		return nil, false, err
	}

	if !noLock {
		if err := a.lockfiles.Write(lockPath, lockfileFor(closure, digest)); err != nil {
			a.log.Warn("failed to write lockfile: " + err.Error())
		}
	}
	return closure, false, nil
}

// closureFromLock rebuilds the locked resolution without re-solving. The
// closure comes back nil when no lockfile exists; a stale or unusable
// lockfile is an error the caller recovers from with a fresh resolution.
func (a *App) closureFromLock(ctx context.Context, mf *domain.Manifest, lockPath, digest string) (*domain.ResolvedClosure, error) {
	lf, err := a.lockfiles.Read(lockPath)
	if err != nil {
		return nil, err
	}
	if lf == nil {
		return nil, nil
	}
	if lf.ManifestDigest != digest {
		return nil, zerr.With(domain.ErrLockfileStale, "path", lockPath)
	}

	// Roots go in first in manifest order so the rebuilt walk order, and
	// with it activation path precedence, matches the original resolution.
	closure := domain.NewClosure()
	for _, req := range mf.Requests() {
		if err := a.addLockedMember(ctx, closure, lf, req.Name.String()); err != nil {
			return nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(lf.Packages)) {
		if _, ok := closure.Lookup(domain.NewInternedString(name)); ok {
			continue
		}
		if err := a.addLockedMember(ctx, closure, lf, name); err != nil {
			return nil, err
		}
	}

	if err := closure.Validate(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrLockfileStale.Error())
	}
	return closure, nil
}

// addLockedMember looks the pinned version up in the index and adds its
// descriptor to the closure.
func (a *App) addLockedMember(ctx context.Context, closure *domain.ResolvedClosure, lf *domain.Lockfile, name string) error {
	locked, ok := lf.Packages[name]
	if !ok {
		staleErr := zerr.With(domain.ErrLockfileStale, "package", name)
		return zerr.With(staleErr, "reason", "not pinned")
	}

	pin, err := domain.ParseConstraint(locked.Version)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockfileStale.Error()), "package", name)
	}

	candidates, err := a.index.Lookup(ctx, name, pin)
	if err != nil {
		// A vanished pin is staleness; transport failures are not.
		if errors.Is(err, domain.ErrPackageNotFound) {
			return zerr.Wrap(err, domain.ErrLockfileStale.Error())
		}
		return err
	}
	for i := range candidates {
		if candidates[i].Version.String() == locked.Version {
			return closure.Add(&candidates[i])
		}
	}

	goneErr := zerr.With(domain.ErrLockfileStale, "package", name)
	return zerr.With(goneErr, "version", locked.Version)
}

// lockfileFor pins a resolved closure against the manifest digest.
func lockfileFor(closure *domain.ResolvedClosure, digest string) *domain.Lockfile {
	lf := &domain.Lockfile{
		Version:        lockfileVersion,
		ManifestDigest: digest,
		Packages:       make(map[string]domain.LockedPackage, closure.Len()),
	}
	for member := range closure.Walk() {
		deps := make([]string, 0, len(member.Depends))
		for _, req := range member.Depends {
			deps = append(deps, req.Name.String())
		}
		lf.Packages[member.Name.String()] = domain.LockedPackage{
			Version: member.Version.String(),
			Depends: deps,
		}
	}
	return lf
}
