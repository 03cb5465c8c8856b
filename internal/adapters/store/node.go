package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/config"
	"go.cocoon.sh/cocoon/internal/adapters/fetch"
	"go.cocoon.sh/cocoon/internal/adapters/logger"
	"go.cocoon.sh/cocoon/internal/adapters/recipe"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NodeID is the unique identifier for the artifact store node.
const NodeID graft.ID = "adapter.store"

func init() {
	graft.Register(graft.Node[ports.Store]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, fetch.NodeID, recipe.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.Store, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}
			recipes, err := graft.Dep[ports.RecipeRunner](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.Store.Root, fetcher, recipes, log)
		},
	})
}
