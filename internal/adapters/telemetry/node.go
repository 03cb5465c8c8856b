package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/adapters/telemetry/progrock"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"golang.org/x/term"
)

// NodeID is the unique identifier for the telemetry adapter node.
const NodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Telemetry, error) {
			// Vertex frames are only worth recording when a terminal
			// is attached to render them.
			if term.IsTerminal(int(os.Stderr.Fd())) {
				return progrock.New(), nil
			}
			return NewNoOp(), nil
		},
	})
}
