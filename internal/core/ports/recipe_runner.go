package ports

import (
	"context"

	"go.cocoon.sh/cocoon/internal/core/domain"
)

// RecipeRunner executes declared build steps for recipe sources.
//
//go:generate go run go.uber.org/mock/mockgen -source=recipe_runner.go -destination=mocks/mock_recipe_runner.go -package=mocks
type RecipeRunner interface {
	// Run executes plan's recipe steps in order inside stagingDir, with the
	// dependency store paths from plan.DepPaths exposed through the step
	// environment. A failing step aborts the run with domain.ErrBuildFailed
	// carrying the step and its stderr tail.
	Run(ctx context.Context, plan domain.BuildPlan, stagingDir string) error
}
