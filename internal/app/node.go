package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/index"
	"go.cocoon.sh/cocoon/internal/adapters/logger"
	"go.cocoon.sh/cocoon/internal/adapters/manifest"
	"go.cocoon.sh/cocoon/internal/adapters/shell"
	"go.cocoon.sh/cocoon/internal/adapters/store"
	"go.cocoon.sh/cocoon/internal/adapters/telemetry"
	"go.cocoon.sh/cocoon/internal/adapters/watcher"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.cocoon.sh/cocoon/internal/engine/envbuild"
	"go.cocoon.sh/cocoon/internal/engine/resolver"
)

const (
	// NodeID is the unique identifier for the main App node.
	NodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the components node.
	ComponentsNodeID graft.ID = "app.components"
)

//nolint:funlen // one Dep call per wired component
func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			manifest.LoaderNodeID,
			manifest.LockfileNodeID,
			index.NodeID,
			resolver.NodeID,
			envbuild.NodeID,
			store.NodeID,
			shell.NodeID,
			watcher.NodeID,
			telemetry.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			manifests, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			lockfiles, err := graft.Dep[ports.LockfileStore](ctx)
			if err != nil {
				return nil, err
			}
			idx, err := graft.Dep[ports.PackageIndex](ctx)
			if err != nil {
				return nil, err
			}
			res, err := graft.Dep[*resolver.Resolver](ctx)
			if err != nil {
				return nil, err
			}
			builder, err := graft.Dep[*envbuild.Builder](ctx)
			if err != nil {
				return nil, err
			}
			st, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}
			activator, err := graft.Dep[ports.Activator](ctx)
			if err != nil {
				return nil, err
			}
			watch, err := graft.Dep[ports.Watcher](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(manifests, lockfiles, idx, res, builder, st, activator, watch, tel, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID, logger.NodeID, telemetry.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log, Telemetry: tel}, nil
		},
	})
}
