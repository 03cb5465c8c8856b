// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.cocoon.sh/cocoon/internal/core/domain"
)

// PackageIndex answers package lookups against a catalog of known versions.
//
//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=mocks/mock_index.go -package=mocks
type PackageIndex interface {
	// Lookup returns every known descriptor for name whose version the
	// constraint admits, in the index's preference order. The resolver
	// re-orders candidates by version; index order breaks version ties.
	//
	// Returns domain.ErrPackageNotFound if the name is unknown or no
	// version satisfies the constraint.
	Lookup(ctx context.Context, name string, constraint domain.Constraint) ([]domain.PackageDescriptor, error)
}
