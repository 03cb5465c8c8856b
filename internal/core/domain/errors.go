package domain

import "go.trai.ch/zerr"

var (
	// ErrPackageNotFound is returned when a requested package name is absent from the index.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrUnsatisfiable is returned when no version assignment can satisfy the accumulated constraints.
	ErrUnsatisfiable = zerr.New("unsatisfiable version constraints")

	// ErrCycleDetected is returned when a cycle is detected in the resolved dependency closure.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrDuplicatePackage is returned when a closure already contains a descriptor for the name.
	ErrDuplicatePackage = zerr.New("duplicate package in closure")

	// ErrMissingDependency is returned when a closure member depends on a name absent from the closure.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrDependencyNotAdmitted is returned when a closure member's dependency constraint rejects the selected version.
	ErrDependencyNotAdmitted = zerr.New("selected version not admitted by dependency constraint")

	// ErrMalformedConstraint is returned when a version range expression cannot be parsed.
	ErrMalformedConstraint = zerr.New("malformed version constraint")

	// ErrMalformedVersion is returned when a version string cannot be parsed.
	ErrMalformedVersion = zerr.New("malformed version")

	// ErrMalformedManifest is returned when the manifest file is structurally invalid.
	ErrMalformedManifest = zerr.New("malformed manifest")

	// ErrManifestNotFound is returned when the manifest file cannot be found.
	ErrManifestNotFound = zerr.New("could not find manifest")

	// ErrNoInterpreter is returned when the manifest declares no interpreter.
	ErrNoInterpreter = zerr.New("manifest declares no interpreter")

	// ErrBuildFailed is returned when materializing a store entry fails.
	ErrBuildFailed = zerr.New("build failed")

	// ErrFetchFailed is returned when downloading an artifact fails after all attempts.
	ErrFetchFailed = zerr.New("fetch failed")

	// ErrArtifactCorrupt is returned when a fetched artifact does not match its declared digest.
	ErrArtifactCorrupt = zerr.New("artifact digest mismatch")

	// ErrStoreCorrupt is returned when an entry is marked built but its content is missing or damaged.
	ErrStoreCorrupt = zerr.New("store entry corrupt")

	// ErrStoreCreateFailed is returned when the store directory layout cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create store directory")

	// ErrStoreLockFailed is returned when the per-entry lock file cannot be acquired.
	ErrStoreLockFailed = zerr.New("failed to acquire store entry lock")

	// ErrActivationCancelled is returned when provisioning or activation is cancelled before completion.
	ErrActivationCancelled = zerr.New("activation cancelled")

	// ErrActivationFailed is returned when the shell session cannot be started.
	ErrActivationFailed = zerr.New("activation failed")

	// ErrSessionTransition is returned on an illegal session state transition.
	ErrSessionTransition = zerr.New("invalid session state transition")

	// ErrUnsupportedPlatform is returned when a descriptor has no source for the current platform.
	ErrUnsupportedPlatform = zerr.New("unsupported platform")

	// ErrUnknownSourceKind is returned when a descriptor declares a source kind the engine cannot materialize.
	ErrUnknownSourceKind = zerr.New("unknown source kind")

	// ErrIndexCacheCreateFailed is returned when the index cache directory cannot be created.
	ErrIndexCacheCreateFailed = zerr.New("failed to create index cache directory")

	// ErrIndexCacheReadFailed is returned when reading from the index cache fails.
	ErrIndexCacheReadFailed = zerr.New("failed to read from index cache")

	// ErrIndexCacheWriteFailed is returned when writing to the index cache fails.
	ErrIndexCacheWriteFailed = zerr.New("failed to write to index cache")

	// ErrIndexCacheMarshalFailed is returned when marshaling index cache data fails.
	ErrIndexCacheMarshalFailed = zerr.New("failed to marshal index cache data")

	// ErrIndexCacheUnmarshalFailed is returned when unmarshaling index cache data fails.
	ErrIndexCacheUnmarshalFailed = zerr.New("failed to unmarshal index cache data")

	// ErrRegistryRequestFailed is returned when a registry API request fails.
	ErrRegistryRequestFailed = zerr.New("failed to make registry request")

	// ErrRegistryParseFailed is returned when parsing a registry response fails.
	ErrRegistryParseFailed = zerr.New("failed to parse registry response")

	// ErrCatalogReadFailed is returned when the catalog snapshot file cannot be read.
	ErrCatalogReadFailed = zerr.New("failed to read catalog file")

	// ErrCatalogParseFailed is returned when the catalog snapshot file cannot be parsed.
	ErrCatalogParseFailed = zerr.New("failed to parse catalog file")

	// ErrLockfileReadFailed is returned when the lockfile cannot be read.
	ErrLockfileReadFailed = zerr.New("failed to read lockfile")

	// ErrLockfileParseFailed is returned when the lockfile cannot be parsed.
	ErrLockfileParseFailed = zerr.New("failed to parse lockfile")

	// ErrLockfileWriteFailed is returned when the lockfile cannot be written.
	ErrLockfileWriteFailed = zerr.New("failed to write lockfile")

	// ErrLockfileStale is returned when the lockfile no longer matches the manifest.
	ErrLockfileStale = zerr.New("lockfile does not match manifest")

	// ErrSessionRecordFailed is returned when a session registration cannot be persisted.
	ErrSessionRecordFailed = zerr.New("failed to record session")

	// ErrCollectFailed is returned when the store sweep cannot complete.
	ErrCollectFailed = zerr.New("failed to collect store garbage")
)
