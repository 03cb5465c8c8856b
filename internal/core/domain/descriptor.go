package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// SourceKind discriminates how a package artifact is materialized.
type SourceKind string

const (
	// SourceKindFetch downloads a prebuilt artifact and verifies its digest.
	SourceKindFetch SourceKind = "fetch"

	// SourceKindRecipe runs declared build steps inside the staging directory.
	SourceKindRecipe SourceKind = "recipe"
)

// Source describes how to materialize a package's artifact on one platform.
type Source struct {
	// Kind selects the materialization strategy.
	Kind SourceKind

	// URL is the artifact location for fetch sources.
	URL InternedString

	// Digest is the expected content digest of the fetched artifact (xxhash64, hex).
	Digest InternedString

	// Steps are the build commands for recipe sources, run in order inside
	// the staging directory.
	Steps []string
}

// Identity returns a deterministic string covering every field that affects
// the produced artifact. It feeds the store hash.
func (s Source) Identity() string {
	var b strings.Builder
	b.WriteString(string(s.Kind))
	b.WriteString("|")
	b.WriteString(s.URL.String())
	b.WriteString("|")
	b.WriteString(s.Digest.String())
	for _, step := range s.Steps {
		b.WriteString("|")
		b.WriteString(step)
	}
	return b.String()
}

// PackageDescriptor represents a concrete resolvable package version with
// multi-platform support. It maps platform strings to their materialization
// sources.
type PackageDescriptor struct {
	// Name is the canonical package name (e.g., "python3").
	Name InternedString

	// Version is the resolved version string (e.g., "3.12.4").
	Version InternedString

	// Depends are the packages this version requires, as unresolved requests.
	Depends []PackageRequest

	// Sources maps platform strings (e.g., "aarch64-darwin", "x86_64-linux")
	// to their materialization source.
	Sources map[string]Source
}

// SourceFor retrieves the materialization source for the specified platform.
// Returns ErrUnsupportedPlatform if the platform is not present in the descriptor.
func (d *PackageDescriptor) SourceFor(platform string) (Source, error) {
	src, exists := d.Sources[platform]
	if !exists {
		err := zerr.With(ErrUnsupportedPlatform, "package", d.Name.String())
		err = zerr.With(err, "version", d.Version.String())
		err = zerr.With(err, "requested_platform", platform)
		return Source{}, err
	}
	return src, nil
}

// Ref renders the descriptor as "name@version" for diagnostics and metadata.
func (d *PackageDescriptor) Ref() string {
	return d.Name.String() + "@" + d.Version.String()
}

// SemVer parses the descriptor's version string.
func (d *PackageDescriptor) SemVer() (*semver.Version, error) {
	v, err := semver.NewVersion(d.Version.String())
	if err != nil {
		parseErr := zerr.Wrap(err, ErrMalformedVersion.Error())
		return nil, zerr.With(parseErr, "package", d.Name.String())
	}
	return v, nil
}
