package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// StoreHash creates the deterministic content hash identifying one store
// entry. It covers the package identity, the platform source, and the sorted
// content hashes of the package's direct dependencies, so any change in the
// transitive inputs produces a different entry.
func StoreHash(d *PackageDescriptor, src Source, depHashes []string) string {
	sorted := slices.Clone(depHashes)
	slices.Sort(sorted)

	var builder strings.Builder
	builder.WriteString(d.Ref())
	builder.WriteString(";")
	builder.WriteString(src.Identity())
	builder.WriteString(";")
	for _, h := range sorted {
		builder.WriteString(h)
		builder.WriteString(";")
	}

	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}

// EnvironmentID creates a deterministic hash for a whole environment from its
// members' store hashes. Used for session registration and cache naming.
func EnvironmentID(storeHashes []string) string {
	sorted := slices.Clone(storeHashes)
	slices.Sort(sorted)

	var builder strings.Builder
	for _, h := range sorted {
		builder.WriteString(h)
		builder.WriteString(";")
	}

	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}

// sortedPlatforms returns the platform keys of a source map in sorted order.
func sortedPlatforms(sources map[string]Source) []string {
	platforms := make([]string, 0, len(sources))
	for platform := range sources {
		platforms = append(platforms, platform)
	}
	slices.Sort(platforms)
	return platforms
}
