package recipe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/adapters/recipe"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newRunner(t *testing.T) *recipe.Runner {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return recipe.NewRunner(log)
}

func recipePlan(name string, steps []string, depPaths map[string]string) domain.BuildPlan {
	return domain.BuildPlan{
		Descriptor: domain.PackageDescriptor{
			Name:    domain.NewInternedString(name),
			Version: domain.NewInternedString("1.0.0"),
		},
		Source: domain.Source{
			Kind:  domain.SourceKindRecipe,
			Steps: steps,
		},
		DepPaths: depPaths,
	}
}

func TestRun_Success(t *testing.T) {
	staging := t.TempDir()
	runner := newRunner(t)

	plan := recipePlan("toolpkg", []string{
		"mkdir -p bin",
		"echo '#!/bin/sh' > bin/tool",
		"chmod +x bin/tool",
	}, nil)

	require.NoError(t, runner.Run(context.Background(), plan, staging))

	info, err := os.Stat(filepath.Join(staging, "bin", "tool"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestRun_NoStepsIsMetaPackage(t *testing.T) {
	staging := t.TempDir()
	runner := newRunner(t)

	require.NoError(t, runner.Run(context.Background(), recipePlan("meta", nil, nil), staging))

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_StepFails(t *testing.T) {
	runner := newRunner(t)

	plan := recipePlan("badpkg", []string{
		"true",
		"echo missing system header >&2; exit 3",
	}, nil)

	err := runner.Run(context.Background(), plan, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrBuildFailed.Error())

	var zerrErr *zerr.Error
	require.True(t, errors.As(err, &zerrErr))
	meta := zerrErr.Metadata()
	assert.Equal(t, "badpkg@1.0.0", meta["package"])
	assert.Equal(t, "2/2", meta["step"])
	assert.Contains(t, meta["stderr"], "missing system header")
}

func TestRun_OutVariablePointsAtStaging(t *testing.T) {
	staging := t.TempDir()
	runner := newRunner(t)

	plan := recipePlan("outpkg", []string{
		`test "$COCOON_OUT" = "$PWD"`,
		"echo done > $COCOON_OUT/result",
	}, nil)

	require.NoError(t, runner.Run(context.Background(), plan, staging))

	_, err := os.Stat(filepath.Join(staging, "result"))
	require.NoError(t, err)
}

func TestRun_DependencyEnvironment(t *testing.T) {
	depDir := t.TempDir()
	binDir := filepath.Join(depDir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))

	script := filepath.Join(binDir, "dep-tool")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho from-dep\n"), 0o755))

	staging := t.TempDir()
	runner := newRunner(t)

	plan := recipePlan("consumer", []string{
		// Dep paths surface both as env vars and on PATH
		`echo "$COCOON_DEP_LIBSSL_DEV" > dep_path`,
		"dep-tool > tool_output",
	}, map[string]string{"libssl-dev": depDir})

	require.NoError(t, runner.Run(context.Background(), plan, staging))

	depPath, err := os.ReadFile(filepath.Join(staging, "dep_path"))
	require.NoError(t, err)
	assert.Equal(t, depDir+"\n", string(depPath))

	toolOutput, err := os.ReadFile(filepath.Join(staging, "tool_output"))
	require.NoError(t, err)
	assert.Equal(t, "from-dep\n", string(toolOutput))
}

func TestRun_ContextCancelled(t *testing.T) {
	runner := newRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	plan := recipePlan("slowpkg", []string{"sleep 10"}, nil)

	start := time.Now()
	err := runner.Run(ctx, plan, t.TempDir())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
