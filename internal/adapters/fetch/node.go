package fetch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/config"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NodeID is the unique identifier for the artifact fetcher node.
const NodeID graft.ID = "adapter.fetcher"

func init() {
	graft.Register(graft.Node[ports.Fetcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.Fetcher, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			return NewClient(cfg.Fetch.Attempts, cfg.Fetch.Timeout), nil
		},
	})
}
