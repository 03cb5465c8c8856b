package envbuild

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/store"
	"go.cocoon.sh/cocoon/internal/adapters/telemetry"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NodeID is the unique identifier for the environment builder node.
const NodeID graft.ID = "engine.envbuild"

func init() {
	graft.Register(graft.Node[*Builder]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{store.NodeID, telemetry.NodeID},
		Run: func(ctx context.Context) (*Builder, error) {
			st, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			return New(st, tel), nil
		},
	})
}
