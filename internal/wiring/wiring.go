// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.cocoon.sh/cocoon/internal/adapters/config"
	_ "go.cocoon.sh/cocoon/internal/adapters/fetch"
	_ "go.cocoon.sh/cocoon/internal/adapters/index"
	_ "go.cocoon.sh/cocoon/internal/adapters/logger"
	_ "go.cocoon.sh/cocoon/internal/adapters/manifest"
	_ "go.cocoon.sh/cocoon/internal/adapters/recipe"
	_ "go.cocoon.sh/cocoon/internal/adapters/shell"
	_ "go.cocoon.sh/cocoon/internal/adapters/store"
	_ "go.cocoon.sh/cocoon/internal/adapters/telemetry"
	_ "go.cocoon.sh/cocoon/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.cocoon.sh/cocoon/internal/app"
	_ "go.cocoon.sh/cocoon/internal/engine/envbuild"
	_ "go.cocoon.sh/cocoon/internal/engine/resolver"
)
