// Package domain contains the core domain models and business logic for
// environment provisioning: package requests, resolved closures, store
// hashing, and session state.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

// ResolvedClosure is the complete, conflict-free set of packages an
// environment needs. Exactly one descriptor per name; every dependency
// request of every member is satisfied by another member.
type ResolvedClosure struct {
	members map[InternedString]PackageDescriptor

	// added preserves insertion order so that validation and iteration stay
	// deterministic for a deterministic resolver.
	added []InternedString

	walkOrder []InternedString
}

// NewClosure creates a new empty ResolvedClosure.
func NewClosure() *ResolvedClosure {
	return &ResolvedClosure{
		members: make(map[InternedString]PackageDescriptor),
	}
}

// Add inserts a descriptor into the closure.
// It returns an error if a descriptor with the same name already exists.
func (c *ResolvedClosure) Add(d *PackageDescriptor) error {
	if _, exists := c.members[d.Name]; exists {
		return zerr.With(ErrDuplicatePackage, "package", d.Name.String())
	}
	c.members[d.Name] = *d
	c.added = append(c.added, d.Name)
	return nil
}

// Remove deletes a member by name. Used by the resolver when backtracking.
func (c *ResolvedClosure) Remove(name InternedString) {
	if _, exists := c.members[name]; !exists {
		return
	}
	delete(c.members, name)
	for i, n := range c.added {
		if n == name {
			c.added = append(c.added[:i], c.added[i+1:]...)
			break
		}
	}
	c.walkOrder = nil
}

// Lookup returns the member descriptor for a name.
func (c *ResolvedClosure) Lookup(name InternedString) (PackageDescriptor, bool) {
	d, ok := c.members[name]
	return d, ok
}

// Len returns the number of members.
func (c *ResolvedClosure) Len() int {
	return len(c.members)
}

// Validate checks the closure invariants: every dependency request is
// satisfied by a member whose version the constraint admits, and the
// dependency relation is acyclic. On success it populates the walk order
// (dependencies before dependents, stable across runs for the same closure).
func (c *ResolvedClosure) Validate() error {
	c.walkOrder = make([]InternedString, 0, len(c.members))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		member, exists := c.members[u]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", u.String())
		}

		for _, req := range member.Depends {
			dep, ok := c.members[req.Name]
			if !ok {
				err := zerr.With(ErrMissingDependency, "dependency", req.Name.String())
				return zerr.With(err, "required_by", member.Ref())
			}
			if err := c.checkAdmitted(&member, req, &dep); err != nil {
				return err
			}
			if visited[req.Name] == 1 {
				return c.buildCycleError(path, req.Name)
			}
			if visited[req.Name] == 0 {
				if err := visit(req.Name); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		c.walkOrder = append(c.walkOrder, u)
		return nil
	}

	// Insertion order keeps disconnected members in a stable position, which
	// the activation path composition depends on.
	for _, name := range c.added {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkAdmitted verifies that the selected version of a dependency satisfies
// the requesting member's constraint.
func (c *ResolvedClosure) checkAdmitted(member *PackageDescriptor, req PackageRequest, dep *PackageDescriptor) error {
	if req.Constraint.Any() {
		return nil
	}
	v, err := dep.SemVer()
	if err != nil {
		return err
	}
	if !req.Constraint.Admits(v) {
		admitErr := zerr.With(ErrDependencyNotAdmitted, "package", dep.Ref())
		admitErr = zerr.With(admitErr, "constraint", req.Constraint.String())
		return zerr.With(admitErr, "required_by", member.Ref())
	}
	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (c *ResolvedClosure) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Walk returns an iterator that yields members in dependency order,
// dependencies before dependents.
// It assumes Validate() has been called and returned nil.
func (c *ResolvedClosure) Walk() iter.Seq[PackageDescriptor] {
	return func(yield func(PackageDescriptor) bool) {
		for _, name := range c.walkOrder {
			if !yield(c.members[name]) {
				return
			}
		}
	}
}

// Members returns the members in walk order as a copied slice.
// It assumes Validate() has been called and returned nil.
func (c *ResolvedClosure) Members() []PackageDescriptor {
	out := make([]PackageDescriptor, 0, len(c.walkOrder))
	for _, name := range c.walkOrder {
		out = append(out, c.members[name])
	}
	return out
}

// CanonicalBytes renders the closure in a stable textual form: one block per
// member in walk order, each listing version, dependency requests, and
// per-platform source identities. Two equal closures always produce identical
// bytes, which lockfile staleness checks and snapshot tests rely on.
func (c *ResolvedClosure) CanonicalBytes() []byte {
	var b strings.Builder
	for _, name := range c.walkOrder {
		member := c.members[name]
		b.WriteString(member.Ref())
		b.WriteString("\n")
		for _, req := range member.Depends {
			b.WriteString("  requires ")
			b.WriteString(req.String())
			b.WriteString("\n")
		}
		for _, platform := range sortedPlatforms(member.Sources) {
			b.WriteString("  source ")
			b.WriteString(platform)
			b.WriteString(" ")
			b.WriteString(member.Sources[platform].Identity())
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}
