package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/config"
	"go.cocoon.sh/cocoon/internal/adapters/index"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NodeID is the unique identifier for the resolver node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, index.NodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			idx, err := graft.Dep[ports.PackageIndex](ctx)
			if err != nil {
				return nil, err
			}
			return New(idx, cfg.Preference()), nil
		},
	})
}
