package index

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/config"
	"go.cocoon.sh/cocoon/internal/adapters/logger"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NodeID is the unique identifier for the package index node.
const NodeID graft.ID = "adapter.package_index"

func init() {
	graft.Register(graft.Node[ports.PackageIndex]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.PackageIndex, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}

			// A configured snapshot path selects the local catalog;
			// otherwise lookups go to the registry.
			if cfg.Index.Path != "" {
				return NewCatalog(cfg.Index.Path)
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewRegistry(cfg.Index.URL, domain.IndexCachePath(cfg.Store.Root), log)
		},
	})
}
