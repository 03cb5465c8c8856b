package domain

import (
	"os"
	"path/filepath"
)

const (
	// CocoonDirName is the name of the per-user cocoon root directory.
	CocoonDirName = ".cocoon"

	// StoreDirName is the name of the content addressable store directory.
	StoreDirName = "store"

	// StagingDirName is the name of the in-progress build staging directory.
	StagingDirName = "staging"

	// LocksDirName is the name of the per-entry lock file directory.
	LocksDirName = "locks"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// IndexDirName is the name of the index response cache directory.
	IndexDirName = "index"

	// SessionsDirName is the name of the live session registration directory.
	SessionsDirName = "sessions"

	// ManifestFileName is the name of the project manifest file.
	ManifestFileName = "cocoon.yaml"

	// LockfileName is the name of the resolution lockfile.
	LockfileName = "cocoon.lock"

	// EntryMetaFileName is the name of the per-entry metadata record.
	EntryMetaFileName = "meta.json"

	// BuiltMarkerName is the name of the marker file written after an entry
	// is fully materialized. An entry without it is treated as absent.
	BuiltMarkerName = ".built"

	// StoreRootEnvVar overrides the default root directory.
	StoreRootEnvVar = "COCOON_STORE_ROOT"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultRootPath returns the default root directory for cocoon state,
// $HOME/.cocoon, falling back to a relative directory when the home
// directory cannot be determined.
func DefaultRootPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return CocoonDirName
	}
	return filepath.Join(home, CocoonDirName)
}

// StorePath returns the content addressable store directory under root.
func StorePath(root string) string {
	return filepath.Join(root, StoreDirName)
}

// StagingPath returns the build staging directory under root.
func StagingPath(root string) string {
	return filepath.Join(root, StoreDirName, StagingDirName)
}

// LocksPath returns the per-entry lock file directory under root.
func LocksPath(root string) string {
	return filepath.Join(root, LocksDirName)
}

// IndexCachePath returns the index response cache directory under root.
func IndexCachePath(root string) string {
	return filepath.Join(root, CacheDirName, IndexDirName)
}

// SessionsPath returns the live session registration directory under root.
func SessionsPath(root string) string {
	return filepath.Join(root, SessionsDirName)
}
