// Package envbuild assembles activatable environments from resolved closures.
package envbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
)

// Builder materializes every member of a resolved closure in the store and
// composes the results into one activatable environment. It never mutates
// the store beyond Ensure calls.
type Builder struct {
	store       ports.Store
	telemetry   ports.Telemetry
	parallelism int
}

// New creates a Builder that materializes independent members concurrently,
// up to one in-flight build per CPU.
func New(store ports.Store, telemetry ports.Telemetry) *Builder {
	return &Builder{
		store:       store,
		telemetry:   telemetry,
		parallelism: runtime.NumCPU(),
	}
}

// Build ensures every closure member is present in the store and returns the
// composed environment. A member becomes eligible once all its dependencies
// are materialized; activation paths come out in dependency order, so on
// name collisions the first-declared entry wins.
func (b *Builder) Build(ctx context.Context, closure *domain.ResolvedClosure) (*domain.Environment, error) {
	if err := closure.Validate(); err != nil {
		return nil, err
	}

	state, err := b.newBuildState(ctx, closure)
	if err != nil {
		return nil, err
	}

	if err := state.run(); err != nil {
		return nil, err
	}

	return state.environment(closure), nil
}

// ensure materializes one member, recording a vertex for the work.
func (b *Builder) ensure(ctx context.Context, plan domain.BuildPlan) (string, error) {
	vctx, vtx := b.telemetry.Record(ctx, "build "+plan.Descriptor.Ref())

	if path, ok := b.store.Get(plan.Hash); ok {
		vtx.Cached()
		vtx.Complete(nil)
		return path, nil
	}

	path, err := b.store.Ensure(vctx, plan)
	vtx.Complete(err)
	return path, err
}

type result struct {
	name domain.InternedString
	path string
	err  error
}

type buildState struct {
	ctx         context.Context
	b           *Builder
	members     map[domain.InternedString]domain.PackageDescriptor
	plans       map[domain.InternedString]domain.BuildPlan
	hashes      map[domain.InternedString]string
	paths       map[domain.InternedString]string
	order       []domain.InternedString
	inDegree    map[domain.InternedString]int
	dependents  map[domain.InternedString][]domain.InternedString
	ready       []domain.InternedString
	active      int
	resultsCh   chan result
	errs        error
	parallelism int
}

// newBuildState computes the content hash of every member bottom-up and
// prepares the dependency bookkeeping for the run. Walk order guarantees a
// member's dependency hashes exist before the member itself is visited.
func (b *Builder) newBuildState(ctx context.Context, closure *domain.ResolvedClosure) (*buildState, error) {
	count := closure.Len()
	state := &buildState{
		ctx:         ctx,
		b:           b,
		members:     make(map[domain.InternedString]domain.PackageDescriptor, count),
		plans:       make(map[domain.InternedString]domain.BuildPlan, count),
		hashes:      make(map[domain.InternedString]string, count),
		paths:       make(map[domain.InternedString]string, count),
		order:       make([]domain.InternedString, 0, count),
		inDegree:    make(map[domain.InternedString]int, count),
		dependents:  make(map[domain.InternedString][]domain.InternedString, count),
		resultsCh:   make(chan result, b.parallelism),
		parallelism: b.parallelism,
	}

	platform := domain.CurrentPlatform()
	for member := range closure.Walk() {
		src, err := member.SourceFor(platform)
		if err != nil {
			return nil, err
		}

		depHashes := make([]string, 0, len(member.Depends))
		for _, req := range member.Depends {
			depHashes = append(depHashes, state.hashes[req.Name])
		}

		name := member.Name
		state.members[name] = member
		state.hashes[name] = domain.StoreHash(&member, src, depHashes)
		state.plans[name] = domain.BuildPlan{
			Descriptor: member,
			Source:     src,
			Hash:       state.hashes[name],
			DepHashes:  depHashes,
		}
		state.order = append(state.order, name)
		state.inDegree[name] = len(member.Depends)
		for _, req := range member.Depends {
			state.dependents[req.Name] = append(state.dependents[req.Name], name)
		}
	}

	for _, name := range state.order {
		if state.inDegree[name] == 0 {
			state.ready = append(state.ready, name)
		}
	}

	return state, nil
}

func (state *buildState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *buildState) run() error {
	for !state.isDone() {
		state.dispatch()

		if state.isDone() {
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
			state.drain()
		}
	}

	if err := state.ctx.Err(); err != nil {
		state.errs = errors.Join(state.errs, zerr.Wrap(err, domain.ErrActivationCancelled.Error()))
	}

	return state.errs
}

func (state *buildState) dispatch() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		plan := state.plans[name]
		plan.DepPaths = state.depPaths(plan.Descriptor.Depends)
		state.active++

		go func(name domain.InternedString, plan domain.BuildPlan) {
			path, err := state.b.ensure(state.ctx, plan)
			state.resultsCh <- result{name: name, path: path, err: err}
		}(name, plan)
	}
}

// depPaths exposes the already-materialized dependency entries to the plan.
func (state *buildState) depPaths(deps []domain.PackageRequest) map[string]string {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string]string, len(deps))
	for _, req := range deps {
		out[req.Name.String()] = state.paths[req.Name]
	}
	return out
}

// drain waits out in-flight ensures after cancellation. Each returns
// promptly because a cancelled waiter detaches from its build.
func (state *buildState) drain() {
	for state.active > 0 {
		state.handleResult(<-state.resultsCh)
	}
	state.ready = nil
}

func (state *buildState) handleResult(res result) {
	state.active--

	if res.err != nil {
		if state.ctx.Err() != nil && errors.Is(res.err, domain.ErrActivationCancelled) {
			// The run-level cancellation error covers detached waiters.
			return
		}
		member := state.members[res.name]
		wrapped := zerr.With(zerr.Wrap(res.err, "package materialization failed"), "package", member.Ref())
		state.errs = errors.Join(state.errs, wrapped)
		return
	}

	// A failed member never unlocks its dependents, so a broken subtree
	// stays confined while siblings keep building.
	state.paths[res.name] = res.path
	for _, dep := range state.dependents[res.name] {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// environment composes the built entries into the final activation set.
func (state *buildState) environment(closure *domain.ResolvedClosure) *domain.Environment {
	paths := make([]domain.ActivationPath, 0, len(state.order))
	hashes := make([]string, 0, len(state.order))
	var binDirs []string
	var siteDirs []string

	for _, name := range state.order {
		dir := state.paths[name]
		paths = append(paths, domain.ActivationPath{Package: name, Dir: dir})
		hashes = append(hashes, state.hashes[name])

		if bin := filepath.Join(dir, "bin"); isDir(bin) {
			binDirs = append(binDirs, bin)
		}
		siteDirs = append(siteDirs, sitePackageDirs(dir)...)
	}

	var vars []string
	if len(binDirs) > 0 {
		vars = append(vars, "PATH="+strings.Join(binDirs, string(os.PathListSeparator)))
	}
	if len(siteDirs) > 0 {
		vars = append(vars, "PYTHONPATH="+strings.Join(siteDirs, string(os.PathListSeparator)))
	}

	return &domain.Environment{
		ID:      domain.EnvironmentID(hashes),
		Closure: closure,
		Paths:   paths,
		Hashes:  hashes,
		Vars:    vars,
	}
}

// sitePackageDirs finds conventional interpreter site directories inside a
// store entry.
func sitePackageDirs(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "lib", "python*", "site-packages"))
	if err != nil {
		return nil
	}

	var dirs []string
	for _, m := range matches {
		if isDir(m) {
			dirs = append(dirs, m)
		}
	}
	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
