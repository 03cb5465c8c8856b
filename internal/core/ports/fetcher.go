package ports

import (
	"context"

	"go.cocoon.sh/cocoon/internal/core/domain"
)

// Fetcher downloads prebuilt package artifacts.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch downloads the artifact described by src into destDir and
	// verifies its content digest. Each attempt is individually
	// time-bounded; transient failures are retried with backoff.
	//
	// Returns domain.ErrFetchFailed after the attempt budget is exhausted
	// and domain.ErrArtifactCorrupt on a digest mismatch.
	Fetch(ctx context.Context, src domain.Source, destDir string) error
}
