package index

import (
	"strings"
	"time"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

// packageDoc is the wire form of one package release, shared by catalog
// snapshots and registry responses.
type packageDoc struct {
	Name    string               `yaml:"name"              json:"name"`
	Version string               `yaml:"version"           json:"version"`
	Depends []string             `yaml:"depends,omitempty" json:"depends,omitempty"`
	Sources map[string]sourceDoc `yaml:"sources"           json:"sources"`
}

// sourceDoc is the wire form of a per-platform materialization source.
type sourceDoc struct {
	Kind   string   `yaml:"kind"             json:"kind"`
	URL    string   `yaml:"url,omitempty"    json:"url,omitempty"`
	Digest string   `yaml:"digest,omitempty" json:"digest,omitempty"`
	Steps  []string `yaml:"steps,omitempty"  json:"steps,omitempty"`
}

// catalogDoc is the YAML shape of an index snapshot file.
type catalogDoc struct {
	Version  int          `yaml:"version"`
	Packages []packageDoc `yaml:"packages"`
}

// registryResponse is the JSON body of GET {base}/v1/packages/{name}.
type registryResponse struct {
	Name     string       `json:"name"`
	Releases []packageDoc `json:"releases"`
}

// cacheEntry is the on-disk form of a cached registry response.
type cacheEntry struct {
	Name      string       `json:"name"`
	Releases  []packageDoc `json:"releases"`
	Timestamp time.Time    `json:"timestamp"`
}

// toDomain converts a wire release into a package descriptor.
func (p packageDoc) toDomain() (domain.PackageDescriptor, error) {
	desc := domain.PackageDescriptor{
		Name:    domain.NewInternedString(p.Name),
		Version: domain.NewInternedString(p.Version),
		Sources: make(map[string]domain.Source, len(p.Sources)),
	}

	for _, dep := range p.Depends {
		req, err := parseDependency(dep)
		if err != nil {
			return domain.PackageDescriptor{}, zerr.With(err, "release", p.Name+"@"+p.Version)
		}
		desc.Depends = append(desc.Depends, req)
	}

	for platform, src := range p.Sources {
		converted, err := src.toDomain()
		if err != nil {
			platformErr := zerr.With(err, "release", p.Name+"@"+p.Version)
			return domain.PackageDescriptor{}, zerr.With(platformErr, "platform", platform)
		}
		desc.Sources[platform] = converted
	}

	return desc, nil
}

// toDomain converts a wire source, validating its kind.
func (s sourceDoc) toDomain() (domain.Source, error) {
	kind := domain.SourceKind(s.Kind)
	switch kind {
	case domain.SourceKindFetch, domain.SourceKindRecipe:
	default:
		return domain.Source{}, zerr.With(domain.ErrUnknownSourceKind, "kind", s.Kind)
	}

	return domain.Source{
		Kind:   kind,
		URL:    domain.NewInternedString(s.URL),
		Digest: domain.NewInternedString(s.Digest),
		Steps:  s.Steps,
	}, nil
}

// parseDependency accepts "name" or "name@range" dependency declarations.
func parseDependency(raw string) (domain.PackageRequest, error) {
	name, constraint, _ := strings.Cut(raw, "@")
	return domain.NewPackageRequest(strings.TrimSpace(name), strings.TrimSpace(constraint))
}

// filterCandidates keeps the releases of name that the constraint admits,
// preserving index rank order. Returns domain.ErrPackageNotFound when
// nothing remains.
func filterCandidates(name string, releases []domain.PackageDescriptor, constraint domain.Constraint) ([]domain.PackageDescriptor, error) {
	candidates := make([]domain.PackageDescriptor, 0, len(releases))
	for _, desc := range releases {
		v, err := desc.SemVer()
		if err != nil {
			return nil, err
		}
		if constraint.Admits(v) {
			candidates = append(candidates, desc)
		}
	}

	if len(candidates) == 0 {
		notFound := zerr.With(domain.ErrPackageNotFound, "package", name)
		return nil, zerr.With(notFound, "constraint", constraint.String())
	}
	return candidates, nil
}
