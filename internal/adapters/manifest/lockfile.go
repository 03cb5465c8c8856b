package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// LockfileStore implements ports.LockfileStore using a YAML file next to the
// manifest.
type LockfileStore struct{}

// NewLockfileStore creates a new LockfileStore.
func NewLockfileStore() *LockfileStore {
	return &LockfileStore{}
}

// lockfileDoc is the on-disk shape of cocoon.lock.
type lockfileDoc struct {
	Version        int                    `yaml:"version"`
	ManifestDigest string                 `yaml:"manifest_digest"`
	Packages       map[string]lockedEntry `yaml:"packages"`
}

type lockedEntry struct {
	Version string   `yaml:"version"`
	Depends []string `yaml:"depends,omitempty"`
}

// Read loads the lockfile at path. Returns nil, nil if the file does not exist.
func (s *LockfileStore) Read(path string) (*domain.Lockfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the manifest location
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrLockfileReadFailed.Error())
	}

	var doc lockfileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		parseErr := zerr.Wrap(err, domain.ErrLockfileParseFailed.Error())
		return nil, zerr.With(parseErr, "path", path)
	}

	lf := &domain.Lockfile{
		Version:        doc.Version,
		ManifestDigest: doc.ManifestDigest,
		Packages:       make(map[string]domain.LockedPackage, len(doc.Packages)),
	}
	for name, entry := range doc.Packages {
		lf.Packages[name] = domain.LockedPackage{
			Version: entry.Version,
			Depends: entry.Depends,
		}
	}
	return lf, nil
}

// Write stores the lockfile at path atomically.
func (s *LockfileStore) Write(path string, lf *domain.Lockfile) error {
	doc := lockfileDoc{
		Version:        lf.Version,
		ManifestDigest: lf.ManifestDigest,
		Packages:       make(map[string]lockedEntry, len(lf.Packages)),
	}
	for name, pkg := range lf.Packages {
		depends := append([]string(nil), pkg.Depends...)
		sort.Strings(depends)
		doc.Packages[name] = lockedEntry{
			Version: pkg.Version,
			Depends: depends,
		}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error())
	}

	if err := atomicWriteFile(path, data); err != nil {
		return zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error())
	}
	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, "cocoon-lock-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
