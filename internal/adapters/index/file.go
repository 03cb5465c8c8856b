// Package index implements the PackageIndex port over catalog snapshot
// files and the package registry API.
package index

import (
	"context"
	"os"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Catalog implements ports.PackageIndex over a YAML snapshot file loaded
// once at construction. Lookups are pure and never touch the network.
type Catalog struct {
	releases map[string][]domain.PackageDescriptor
}

// NewCatalog loads the snapshot at path.
func NewCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		catErr := zerr.Wrap(err, domain.ErrCatalogReadFailed.Error())
		return nil, zerr.With(catErr, "path", path)
	}
	return parseCatalog(data)
}

// parseCatalog decodes and validates a snapshot document.
func parseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
	}

	releases := make(map[string][]domain.PackageDescriptor, len(doc.Packages))
	for _, p := range doc.Packages {
		desc, err := p.toDomain()
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		if _, err := desc.SemVer(); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCatalogParseFailed.Error())
		}
		name := desc.Name.String()
		releases[name] = append(releases[name], desc)
	}

	return &Catalog{releases: releases}, nil
}

// Lookup returns the catalog's releases of name admitted by the constraint,
// in declaration order.
func (c *Catalog) Lookup(_ context.Context, name string, constraint domain.Constraint) ([]domain.PackageDescriptor, error) {
	return filterCandidates(name, c.releases[name], constraint)
}
