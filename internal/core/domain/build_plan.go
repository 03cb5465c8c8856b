package domain

// BuildPlan describes one store entry to materialize: the closure member,
// its platform source, the content hash the entry will live under, and the
// already-materialized entries of its direct dependencies.
type BuildPlan struct {
	// Descriptor is the closure member being materialized.
	Descriptor PackageDescriptor

	// Source is the materialization source selected for the current platform.
	Source Source

	// Hash is the content hash identifying the store entry.
	Hash string

	// DepHashes are the content hashes of the direct dependencies.
	DepHashes []string

	// DepPaths maps dependency package names to their absolute store paths,
	// for exposure to recipe steps.
	DepPaths map[string]string
}
