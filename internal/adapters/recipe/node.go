package recipe

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/logger"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NodeID is the unique identifier for the recipe runner node.
const NodeID graft.ID = "adapter.recipe_runner"

func init() {
	graft.Register(graft.Node[ports.RecipeRunner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.RecipeRunner, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(log), nil
		},
	})
}
