// Package resolver computes the package closure for an environment.
package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
)

// manifestRequester names the requester of top level requests in
// diagnostics, as opposed to requests contributed by a package's
// dependency list.
const manifestRequester = "manifest"

// Resolver turns a set of package requests into a conflict free closure of
// exact versions, consulting the package index for candidates.
type Resolver struct {
	index  ports.PackageIndex
	prefer domain.SelectionPreference
}

// New creates a Resolver using the given index and selection preference.
func New(index ports.PackageIndex, prefer domain.SelectionPreference) *Resolver {
	return &Resolver{index: index, prefer: prefer}
}

// Resolve computes the closure for the given requests. Identical requests
// against an identical index snapshot always produce an identical closure.
// It fails with domain.ErrUnsatisfiable when no single version of some
// package satisfies everyone asking for it, and with domain.ErrCycleDetected
// when the chosen dependency graph is cyclic.
func (r *Resolver) Resolve(ctx context.Context, requests []domain.PackageRequest) (*domain.ResolvedClosure, error) {
	s := newSolver(ctx, r)

	pending := make([]pendingRequest, 0, len(requests))
	for _, req := range requests {
		pending = append(pending, pendingRequest{request: req, requester: manifestRequester})
	}
	if err := s.solve(pending); err != nil {
		return nil, err
	}

	closure := domain.NewClosure()
	for _, name := range s.order {
		d := s.selected[name]
		if err := closure.Add(&d); err != nil {
			return nil, err
		}
	}
	if err := closure.Validate(); err != nil {
		return nil, err
	}
	return closure, nil
}

// pendingRequest is one unprocessed request together with who asked for it.
type pendingRequest struct {
	request   domain.PackageRequest
	requester string
}

// requirement records one constraint placed on a name, for conflict
// diagnostics.
type requirement struct {
	constraint domain.Constraint
	requester  string
}

type solver struct {
	ctx    context.Context
	index  ports.PackageIndex
	prefer domain.SelectionPreference

	requirements map[domain.InternedString][]requirement
	selected     map[domain.InternedString]domain.PackageDescriptor

	// order preserves selection order so the closure is assembled the same
	// way on every run.
	order []domain.InternedString

	lookups map[string][]domain.PackageDescriptor
}

func newSolver(ctx context.Context, r *Resolver) *solver {
	return &solver{
		ctx:          ctx,
		index:        r.index,
		prefer:       r.prefer,
		requirements: make(map[domain.InternedString][]requirement),
		selected:     make(map[domain.InternedString]domain.PackageDescriptor),
		lookups:      make(map[string][]domain.PackageDescriptor),
	}
}

// solve processes the pending requests in order. For an undecided name it
// tries each admitted candidate, most preferred first, and backtracks to
// the next candidate when a choice leads into a dead end downstream.
func (s *solver) solve(pending []pendingRequest) error {
	if err := s.ctx.Err(); err != nil {
		return zerr.Wrap(err, domain.ErrActivationCancelled.Error())
	}
	if len(pending) == 0 {
		return nil
	}

	head, rest := pending[0], pending[1:]
	name := head.request.Name

	s.require(name, head.request.Constraint, head.requester)
	defer s.unrequire(name)

	if chosen, ok := s.selected[name]; ok {
		admitted, err := admits(head.request.Constraint, &chosen)
		if err != nil {
			return err
		}
		if !admitted {
			return s.conflict(name)
		}
		return s.solve(rest)
	}

	candidates, err := s.lookup(name, head.request.Constraint)
	if err != nil {
		return err
	}

	var lastErr error
	for _, candidate := range candidates {
		next := make([]pendingRequest, 0, len(rest)+len(candidate.Depends))
		next = append(next, rest...)
		for _, dep := range candidate.Depends {
			next = append(next, pendingRequest{request: dep, requester: candidate.Ref()})
		}

		s.selected[name] = candidate
		s.order = append(s.order, name)

		err := s.solve(next)
		if err == nil {
			return nil
		}

		delete(s.selected, name)
		s.order = s.order[:len(s.order)-1]

		if !retriable(err) {
			return err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = s.conflict(name)
	}
	return lastErr
}

// lookup queries the index once per name and constraint pair and ranks the
// result. Backtracking revisits the same pair often, and registry lookups
// are not free.
func (s *solver) lookup(name domain.InternedString, c domain.Constraint) ([]domain.PackageDescriptor, error) {
	key := name.String() + "|" + c.String()
	if cached, ok := s.lookups[key]; ok {
		return cached, nil
	}

	candidates, err := s.index.Lookup(s.ctx, name.String(), c)
	if err != nil {
		return nil, err
	}
	s.rank(candidates)
	s.lookups[key] = candidates
	return candidates, nil
}

// rank orders candidates by the configured preference. The sort is stable,
// so the index's own order stays as the tie break between equal versions.
func (s *solver) rank(candidates []domain.PackageDescriptor) {
	if s.prefer == domain.PreferIndexed {
		return
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		vi, errI := candidates[i].SemVer()
		vj, errJ := candidates[j].SemVer()
		if errI != nil || errJ != nil {
			return false
		}
		return vi.GreaterThan(vj)
	})
}

func (s *solver) require(name domain.InternedString, c domain.Constraint, requester string) {
	s.requirements[name] = append(s.requirements[name], requirement{constraint: c, requester: requester})
}

func (s *solver) unrequire(name domain.InternedString) {
	reqs := s.requirements[name]
	s.requirements[name] = reqs[:len(reqs)-1]
}

// conflict builds the unsatisfiable error for a name, listing every
// requester and the range it asked for.
func (s *solver) conflict(name domain.InternedString) error {
	reqs := s.requirements[name]
	parts := make([]string, 0, len(reqs))
	for _, req := range reqs {
		parts = append(parts, req.requester+" wants "+name.String()+"@"+req.constraint.String())
	}

	err := zerr.With(domain.ErrUnsatisfiable, "package", name.String())
	return zerr.With(err, "chain", strings.Join(parts, "; "))
}

// admits reports whether the constraint accepts the descriptor's version.
func admits(c domain.Constraint, d *domain.PackageDescriptor) (bool, error) {
	if c.Any() {
		return true, nil
	}
	v, err := d.SemVer()
	if err != nil {
		return false, err
	}
	return c.Admits(v), nil
}

// retriable reports whether a failed pick may be fixed by trying the next
// candidate. Index transport failures and cancellation abort outright.
func retriable(err error) bool {
	return errors.Is(err, domain.ErrPackageNotFound) ||
		errors.Is(err, domain.ErrUnsatisfiable)
}
