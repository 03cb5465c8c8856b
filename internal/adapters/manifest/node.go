package manifest

import (
	"context"

	"github.com/grindlemire/graft"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

const (
	// LoaderNodeID is the unique identifier for the manifest loader node.
	LoaderNodeID graft.ID = "adapter.manifest_loader"

	// LockfileNodeID is the unique identifier for the lockfile store node.
	LockfileNodeID graft.ID = "adapter.lockfile_store"
)

func init() {
	graft.Register(graft.Node[ports.ManifestLoader]{
		ID:        LoaderNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ManifestLoader, error) {
			return NewLoader(), nil
		},
	})

	graft.Register(graft.Node[ports.LockfileStore]{
		ID:        LockfileNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.LockfileStore, error) {
			return NewLockfileStore(), nil
		},
	})
}
