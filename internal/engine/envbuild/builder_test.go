package envbuild_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/adapters/telemetry"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.cocoon.sh/cocoon/internal/core/ports/mocks"
	"go.cocoon.sh/cocoon/internal/engine/envbuild"
	"go.uber.org/mock/gomock"
)

func fetchDesc(name, version string, deps ...string) domain.PackageDescriptor {
	return domain.PackageDescriptor{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
		Depends: parseDeps(deps),
		Sources: map[string]domain.Source{
			domain.CurrentPlatform(): {
				Kind:   domain.SourceKindFetch,
				URL:    domain.NewInternedString("https://artifacts.example.com/" + name + "-" + version + ".tar.zst"),
				Digest: domain.NewInternedString("feedfacecafebeef"),
			},
		},
	}
}

func parseDeps(deps []string) []domain.PackageRequest {
	out := make([]domain.PackageRequest, 0, len(deps))
	for _, dep := range deps {
		name, constraint, _ := strings.Cut(dep, "@")
		out = append(out, domain.PackageRequest{
			Name:       domain.NewInternedString(name),
			Constraint: domain.MustConstraint(constraint),
		})
	}
	return out
}

func closureOf(t *testing.T, descs ...domain.PackageDescriptor) *domain.ResolvedClosure {
	t.Helper()
	closure := domain.NewClosure()
	for i := range descs {
		require.NoError(t, closure.Add(&descs[i]))
	}
	return closure
}

// planCapture records the build plans handed to the store, keyed by package
// name. Ensure runs on worker goroutines, so access is locked.
type planCapture struct {
	mu    sync.Mutex
	plans map[string]domain.BuildPlan
}

func newPlanCapture() *planCapture {
	return &planCapture{plans: map[string]domain.BuildPlan{}}
}

func (c *planCapture) ensure(_ context.Context, plan domain.BuildPlan) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[plan.Descriptor.Name.String()] = plan
	return "/store/" + plan.Hash, nil
}

func (c *planCapture) plan(name string) (domain.BuildPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, ok := c.plans[name]
	return plan, ok
}

func TestBuild_MaterializesClosure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	capture := newPlanCapture()
	st.EXPECT().Get(gomock.Any()).Return("", false).AnyTimes()
	st.EXPECT().Ensure(gomock.Any(), gomock.Any()).DoAndReturn(capture.ensure).Times(3)

	closure := closureOf(t,
		fetchDesc("python3", "3.12.4"),
		fetchDesc("urllib3", "2.2.1"),
		fetchDesc("requests", "2.31.0", "urllib3@^2.0"),
	)

	env, err := builder.Build(t.Context(), closure)
	require.NoError(t, err)

	require.Len(t, env.Paths, 3)
	assert.Equal(t, "python3", env.Paths[0].Package.String())
	assert.Equal(t, "urllib3", env.Paths[1].Package.String())
	assert.Equal(t, "requests", env.Paths[2].Package.String())
	assert.Len(t, env.ID, 64)

	urllib3Plan, ok := capture.plan("urllib3")
	require.True(t, ok)
	requestsPlan, ok := capture.plan("requests")
	require.True(t, ok)

	// The dependency's hash and store path flow into the dependent's plan.
	require.Len(t, requestsPlan.DepHashes, 1)
	assert.Equal(t, urllib3Plan.Hash, requestsPlan.DepHashes[0])
	assert.Equal(t, "/store/"+urllib3Plan.Hash, requestsPlan.DepPaths["urllib3"])
	assert.Equal(t, "/store/"+requestsPlan.Hash, env.Paths[2].Dir)
}

func TestBuild_ComposesPathVariables(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	pyDir := t.TempDir()
	rgDir := t.TempDir()
	siteDir := filepath.Join(pyDir, "lib", "python3.12", "site-packages")
	require.NoError(t, os.MkdirAll(filepath.Join(pyDir, "bin"), 0o750))
	require.NoError(t, os.MkdirAll(siteDir, 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(rgDir, "bin"), 0o750))

	dirs := map[string]string{"python3": pyDir, "ripgrep": rgDir}
	st.EXPECT().Get(gomock.Any()).Return("", false).AnyTimes()
	st.EXPECT().Ensure(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan domain.BuildPlan) (string, error) {
			return dirs[plan.Descriptor.Name.String()], nil
		}).Times(2)

	closure := closureOf(t,
		fetchDesc("python3", "3.12.4"),
		fetchDesc("ripgrep", "14.1.0"),
	)

	env, err := builder.Build(t.Context(), closure)
	require.NoError(t, err)

	sep := string(os.PathListSeparator)
	assert.Equal(t, []string{
		"PATH=" + filepath.Join(pyDir, "bin") + sep + filepath.Join(rgDir, "bin"),
		"PYTHONPATH=" + siteDir,
	}, env.Vars)
}

func TestBuild_CachedEntriesSkipEnsure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	tel := mocks.NewMockTelemetry(ctrl)
	builder := envbuild.New(st, tel)

	vtx := mocks.NewMockVertex(ctrl)
	tel.EXPECT().Record(gomock.Any(), "build python3@3.12.4").DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
			return ctx, vtx
		})
	vtx.EXPECT().Cached()
	vtx.EXPECT().Complete(nil)

	st.EXPECT().Get(gomock.Any()).DoAndReturn(func(hash string) (string, bool) {
		return "/store/" + hash, true
	})

	closure := closureOf(t, fetchDesc("python3", "3.12.4"))

	env, err := builder.Build(t.Context(), closure)
	require.NoError(t, err)
	require.Len(t, env.Paths, 1)
	assert.True(t, strings.HasPrefix(env.Paths[0].Dir, "/store/"))
}

func TestBuild_FailedMemberConfinesSubtree(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	var mu sync.Mutex
	ensured := map[string]bool{}
	st.EXPECT().Get(gomock.Any()).Return("", false).AnyTimes()
	st.EXPECT().Ensure(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan domain.BuildPlan) (string, error) {
			name := plan.Descriptor.Name.String()
			mu.Lock()
			ensured[name] = true
			mu.Unlock()
			if name == "base" {
				return "", domain.ErrFetchFailed
			}
			return "/store/" + plan.Hash, nil
		}).Times(2)

	closure := closureOf(t,
		fetchDesc("base", "1.0.0"),
		fetchDesc("app", "2.0.0", "base@^1.0"),
		fetchDesc("lib", "3.0.0"),
	)

	_, err := builder.Build(t.Context(), closure)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Contains(t, err.Error(), "package materialization failed")

	// The failed member's dependent never reached the store, its sibling did.
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, ensured["lib"])
	assert.False(t, ensured["app"])
}

func TestBuild_CancelledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	closure := closureOf(t, fetchDesc("python3", "3.12.4"))

	_, err := builder.Build(ctx, closure)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrActivationCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_UnsupportedPlatform(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	desc := domain.PackageDescriptor{
		Name:    domain.NewInternedString("exotic"),
		Version: domain.NewInternedString("1.0.0"),
		Sources: map[string]domain.Source{
			"mips-plan9": {Kind: domain.SourceKindFetch},
		},
	}

	_, err := builder.Build(t.Context(), closureOf(t, desc))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPlatform)
}

func TestBuild_InvalidClosureRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	closure := closureOf(t, fetchDesc("requests", "2.31.0", "urllib3@^2.0"))

	_, err := builder.Build(t.Context(), closure)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestBuild_EmptyClosure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	builder := envbuild.New(st, telemetry.NewNoOp())

	env, err := builder.Build(t.Context(), domain.NewClosure())
	require.NoError(t, err)
	assert.Empty(t, env.Paths)
	assert.Empty(t, env.Vars)
	assert.Len(t, env.ID, 64)
}
