// Package app implements the application layer for cocoon: it turns a
// manifest into a provisioned environment and hands it to the activator.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.cocoon.sh/cocoon/internal/adapters/watcher"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.cocoon.sh/cocoon/internal/engine/envbuild"
	"go.cocoon.sh/cocoon/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	manifests ports.ManifestLoader
	lockfiles ports.LockfileStore
	index     ports.PackageIndex
	resolver  *resolver.Resolver
	builder   *envbuild.Builder
	store     ports.Store
	activator ports.Activator
	watcher   ports.Watcher
	telemetry ports.Telemetry
	log       ports.Logger

	stdout   io.Writer
	stderr   io.Writer
	debounce time.Duration
}

// New creates a new App instance.
func New(
	manifests ports.ManifestLoader,
	lockfiles ports.LockfileStore,
	index ports.PackageIndex,
	res *resolver.Resolver,
	builder *envbuild.Builder,
	store ports.Store,
	activator ports.Activator,
	watch ports.Watcher,
	telemetry ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		manifests: manifests,
		lockfiles: lockfiles,
		index:     index,
		resolver:  res,
		builder:   builder,
		store:     store,
		activator: activator,
		watcher:   watch,
		telemetry: telemetry,
		log:       log,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		debounce:  watcher.DefaultDebounceWindow,
	}
}

// WithOutput redirects the streams run commands write to.
// This is primarily used for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithDebounceWindow overrides the watch-mode debounce window.
// This is primarily used for testing.
func (a *App) WithDebounceWindow(d time.Duration) *App {
	a.debounce = d
	return a
}

// ShellOptions configuration for the Shell method.
type ShellOptions struct {
	ManifestPath string
	NoLock       bool
}

// Shell provisions the manifest's environment and opens an interactive shell
// inside it. It returns when the session ends; a clean shell exit returns nil.
func (a *App) Shell(ctx context.Context, opts ShellOptions) error {
	env, release, err := a.provision(ctx, manifestPathOr(opts.ManifestPath), opts.NoLock)
	if err != nil {
		return err
	}
	defer release()

	session, err := a.activator.Activate(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	return session.Wait()
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	ManifestPath string
	NoLock       bool
	Watch        bool
	Argv         []string
}

// Run executes one command inside the manifest's environment. With Watch set
// it keeps running: a manifest change re-provisions the environment and
// restarts the command, and cancellation ends watch mode cleanly.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Argv) == 0 {
		return zerr.With(domain.ErrActivationFailed, "reason", "no command given")
	}
	opts.ManifestPath = manifestPathOr(opts.ManifestPath)

	if !opts.Watch {
		return a.runOnce(ctx, opts)
	}
	return a.runWatch(ctx, opts)
}

// runOnce provisions the environment and executes the command in it.
func (a *App) runOnce(ctx context.Context, opts RunOptions) error {
	env, release, err := a.provision(ctx, opts.ManifestPath, opts.NoLock)
	if err != nil {
		return err
	}
	defer release()

	return a.activator.Exec(ctx, env, opts.Argv, a.stdout, a.stderr)
}

// GCOptions configuration for the GC method.
type GCOptions struct {
	DryRun bool
}

// GC sweeps the store, removing entries no live session references. A dry
// run reports what would go without touching anything.
func (a *App) GC(ctx context.Context, opts GCOptions) error {
	removed, err := a.store.Collect(ctx, nil, opts.DryRun)
	if err != nil {
		return err
	}

	verb := "removed"
	if opts.DryRun {
		verb = "would remove"
	}
	for _, hash := range removed {
		a.log.Info(verb + " " + hash)
	}
	if len(removed) == 0 {
		a.log.Info("store is clean, nothing to collect")
	}
	return nil
}

// provision loads the manifest, resolves its closure, and materializes the
// environment. The returned release function unregisters the session record
// that keeps the environment's store entries out of garbage collection.
func (a *App) provision(ctx context.Context, manifestPath string, noLock bool) (*domain.Environment, func(), error) {
	mf, err := a.manifests.Load(manifestPath)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load manifest")
	}

	closure, err := a.resolveClosure(ctx, mf, manifestPath, noLock)
	if err != nil {
		return nil, nil, err
	}

	env, err := a.builder.Build(ctx, closure)
	if err != nil {
		return nil, nil, err
	}

	return env, a.registerSession(env), nil
}

// registerSession records the environment as live. Registration failures
// degrade to a warning: a missing record only risks an early collect.
func (a *App) registerSession(env *domain.Environment) func() {
	rec := domain.SessionRecord{
		EnvironmentID: env.ID,
		PID:           os.Getpid(),
		StoreHashes:   env.Hashes,
		StartedAt:     time.Now(),
	}
	if err := a.store.RegisterSession(rec); err != nil {
		a.log.Warn("failed to record session: " + err.Error())
		return func() {}
	}

	return func() {
		if err := a.store.ReleaseSession(env.ID); err != nil {
			a.log.Warn("failed to release session: " + err.Error())
		}
	}
}

// resolveClosure produces the validated closure for the manifest, restoring
// it from the lockfile when that is still current and recording the work as
// one vertex.
func (a *App) resolveClosure(ctx context.Context, mf *domain.Manifest, manifestPath string, noLock bool) (*domain.ResolvedClosure, error) {
	vctx, vtx := a.telemetry.Record(ctx, "resolve "+filepath.Base(manifestPath))

	closure, locked, err := a.resolve(vctx, mf, manifestPath, noLock)
	if err == nil && locked {
		vtx.Cached()
	}
	vtx.Complete(err)

	return closure, err
}

func manifestPathOr(path string) string {
	if path == "" {
		return domain.ManifestFileName
	}
	return path
}
