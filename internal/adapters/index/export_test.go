package index

import (
	"net/http"

	"go.cocoon.sh/cocoon/internal/core/ports"
)

// NewRegistryWithClient exports the private constructor for testing purposes.
func NewRegistryWithClient(baseURL, cacheDir string, client *http.Client, log ports.Logger) (*Registry, error) {
	return newRegistryWithClient(baseURL, cacheDir, client, log)
}
