package ports

import "go.cocoon.sh/cocoon/internal/core/domain"

// ManifestLoader reads and validates the project manifest.
//
//go:generate go run go.uber.org/mock/mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks
type ManifestLoader interface {
	// Load reads the manifest at path. Structural problems surface as
	// domain.ErrMalformedManifest with field metadata; a missing file as
	// domain.ErrManifestNotFound.
	Load(path string) (*domain.Manifest, error)

	// Digest returns the content digest of the manifest file (xxhash64,
	// hex). Used for lockfile staleness checks.
	Digest(path string) (string, error)
}

// LockfileStore persists resolution lockfiles next to the manifest.
type LockfileStore interface {
	// Read loads the lockfile at path.
	// Returns nil, nil if the file does not exist.
	Read(path string) (*domain.Lockfile, error)

	// Write stores the lockfile at path atomically.
	Write(path string, lf *domain.Lockfile) error
}
