package domain

import (
	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// Constraint is a version range predicate (e.g. "^1.26", ">=2.0 <3.0").
// The zero value admits every version.
type Constraint struct {
	raw  InternedString
	spec *semver.Constraints
}

// ParseConstraint parses a version range expression into a Constraint.
// An empty expression yields the any-version constraint.
func ParseConstraint(raw string) (Constraint, error) {
	if raw == "" {
		return Constraint{}, nil
	}
	spec, err := semver.NewConstraint(raw)
	if err != nil {
		parseErr := zerr.Wrap(err, ErrMalformedConstraint.Error())
		return Constraint{}, zerr.With(parseErr, "constraint", raw)
	}
	return Constraint{raw: NewInternedString(raw), spec: spec}, nil
}

// MustConstraint parses a version range expression and panics on failure.
// Intended for fixtures and tests with literal expressions.
func MustConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Any reports whether the constraint admits every version.
func (c Constraint) Any() bool {
	return c.spec == nil
}

// Admits reports whether the given version satisfies the constraint.
func (c Constraint) Admits(v *semver.Version) bool {
	if c.spec == nil {
		return true
	}
	return c.spec.Check(v)
}

// String returns the original range expression, or "*" for the any-version constraint.
func (c Constraint) String() string {
	if c.spec == nil {
		return "*"
	}
	return c.raw.String()
}

// PackageRequest represents a user's intent to include a package in the
// environment. This is the input representation before resolution
// (e.g., from cocoon.yaml or a dependency list in a descriptor).
type PackageRequest struct {
	// Name is the package name as requested (e.g., "python3", "ortools").
	Name InternedString

	// Constraint is the requested version range. The zero value admits any version.
	Constraint Constraint
}

// NewPackageRequest builds a request from a package name and a raw range expression.
func NewPackageRequest(name, rawConstraint string) (PackageRequest, error) {
	c, err := ParseConstraint(rawConstraint)
	if err != nil {
		return PackageRequest{}, zerr.With(err, "package", name)
	}
	return PackageRequest{Name: NewInternedString(name), Constraint: c}, nil
}

// String renders the request as "name@range" for diagnostics.
func (r PackageRequest) String() string {
	return r.Name.String() + "@" + r.Constraint.String()
}
