package app

import (
	"context"

	"go.cocoon.sh/cocoon/internal/adapters/watcher"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// runWatch keeps the command running: a manifest change re-provisions the
// environment and restarts it, even mid-run. Cancellation is the normal way
// out of watch mode and returns nil.
func (a *App) runWatch(ctx context.Context, opts RunOptions) error {
	if err := a.watcher.Start(ctx, opts.ManifestPath); err != nil {
		return zerr.Wrap(err, "failed to start manifest watcher")
	}

	reload := make(chan struct{}, 1)
	debounce := watcher.NewDebouncer(a.debounce, func([]string) {
		select {
		case reload <- struct{}{}:
		default:
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	// Event pump. Ends when the watcher shuts down and closes its stream.
	g.Go(func() error {
		for ev := range a.watcher.Events() {
			debounce.Add(ev.Path)
		}
		return nil
	})

	g.Go(func() error {
		// Stopping the watcher lets the pump finish.
		defer func() { _ = a.watcher.Stop() }()
		for a.watchIteration(gctx, opts, reload) {
		}
		return nil
	})

	return g.Wait()
}

// watchIteration runs the command once and waits for a manifest change or
// shutdown. It reports whether another iteration should follow.
func (a *App) watchIteration(ctx context.Context, opts RunOptions, reload <-chan struct{}) bool {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.runOnce(runCtx, opts) }()

	select {
	case err := <-done:
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			// A failed run is not fatal in watch mode; the next save
			// gets another chance.
			a.log.Error(err)
		}
		a.log.Info("watching " + opts.ManifestPath + " for changes")
		select {
		case <-ctx.Done():
			return false
		case <-reload:
			a.log.Info("manifest changed, re-provisioning")
			return true
		}

	case <-reload:
		// A change mid-run restarts the command in the new environment.
		a.log.Info("manifest changed, restarting")
		cancel()
		<-done
		return true

	case <-ctx.Done():
		cancel()
		<-done
		return false
	}
}
