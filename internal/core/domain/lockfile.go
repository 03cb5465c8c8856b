package domain

// Lockfile pins the outcome of a resolution so later runs can reproduce it
// without re-solving. It is keyed to the manifest content it was derived from.
type Lockfile struct {
	// Version is the lockfile format version (e.g., 1, 2).
	// This allows for future schema migrations and backward compatibility.
	Version int

	// ManifestDigest is the content digest of the manifest the resolution was
	// derived from (xxhash64, hex). A mismatch marks the lockfile stale.
	ManifestDigest string

	// Packages maps canonical package names to their pinned resolution.
	// The key is the package name as a string for serialization compatibility.
	Packages map[string]LockedPackage
}

// LockedPackage is one pinned member of a locked resolution.
type LockedPackage struct {
	// Version is the exact resolved version.
	Version string

	// Depends lists the dependency names the resolver selected for this member.
	Depends []string
}
