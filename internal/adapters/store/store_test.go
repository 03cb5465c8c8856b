package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/adapters/store"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newStore(t *testing.T) (*store.Store, string, *mocks.MockFetcher, *mocks.MockRecipeRunner) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	fetcher := mocks.NewMockFetcher(ctrl)
	recipes := mocks.NewMockRecipeRunner(ctrl)

	root := t.TempDir()
	s, err := store.New(root, fetcher, recipes, log)
	require.NoError(t, err)
	return s, root, fetcher, recipes
}

func fetchPlan(name, version string) domain.BuildPlan {
	desc := domain.PackageDescriptor{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
	}
	src := domain.Source{
		Kind:   domain.SourceKindFetch,
		URL:    domain.NewInternedString("https://artifacts.example.com/" + name + "-" + version + ".tar.zst"),
		Digest: domain.NewInternedString("00112233aabbccdd"),
	}
	return domain.BuildPlan{
		Descriptor: desc,
		Source:     src,
		Hash:       domain.StoreHash(&desc, src, nil),
	}
}

func writeArtifact(name string) func(context.Context, domain.Source, string) error {
	return func(_ context.Context, _ domain.Source, destDir string) error {
		return os.WriteFile(filepath.Join(destDir, name), []byte("artifact"), 0o644)
	}
}

func TestEnsure_FetchEntry(t *testing.T) {
	s, root, fetcher, _ := newStore(t)
	plan := fetchPlan("python3", "3.12.4")

	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		DoAndReturn(writeArtifact("python3-3.12.4.tar.zst"))

	path, err := s.Ensure(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(domain.StorePath(root), plan.Hash), path)
	assert.FileExists(t, filepath.Join(path, "python3-3.12.4.tar.zst"))
	assert.FileExists(t, filepath.Join(path, domain.BuiltMarkerName))

	data, err := os.ReadFile(filepath.Join(path, domain.EntryMetaFileName))
	require.NoError(t, err)
	var meta domain.EntryMeta
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, plan.Hash, meta.Hash)
	assert.Equal(t, "python3", meta.Name)
	assert.Equal(t, "3.12.4", meta.Version)
	assert.False(t, meta.BuiltAt.IsZero())

	assert.Equal(t, int64(1), s.BuildCount())
}

func TestEnsure_SecondCallIsHit(t *testing.T) {
	s, _, fetcher, _ := newStore(t)
	plan := fetchPlan("go", "1.22.5")

	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		DoAndReturn(writeArtifact("go1.22.5.tar.zst")).
		Times(1)

	first, err := s.Ensure(context.Background(), plan)
	require.NoError(t, err)
	second, err := s.Ensure(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), s.BuildCount())
	assert.Equal(t, int64(1), s.HitCount())
}

func TestEnsure_RecipeEntry(t *testing.T) {
	s, _, _, recipes := newStore(t)

	desc := domain.PackageDescriptor{
		Name:    domain.NewInternedString("ortools"),
		Version: domain.NewInternedString("9.10.0"),
	}
	src := domain.Source{
		Kind:  domain.SourceKindRecipe,
		Steps: []string{"./configure", "make install"},
	}
	plan := domain.BuildPlan{
		Descriptor: desc,
		Source:     src,
		Hash:       domain.StoreHash(&desc, src, nil),
	}

	recipes.EXPECT().
		Run(gomock.Any(), plan, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.BuildPlan, stagingDir string) error {
			return os.MkdirAll(filepath.Join(stagingDir, "bin"), 0o755)
		})

	path, err := s.Ensure(context.Background(), plan)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(path, "bin"))
	assert.FileExists(t, filepath.Join(path, domain.BuiltMarkerName))
}

func TestEnsure_UnknownSourceKind(t *testing.T) {
	s, _, _, _ := newStore(t)

	desc := domain.PackageDescriptor{
		Name:    domain.NewInternedString("mystery"),
		Version: domain.NewInternedString("1.0.0"),
	}
	src := domain.Source{Kind: domain.SourceKind("teleport")}
	plan := domain.BuildPlan{
		Descriptor: desc,
		Source:     src,
		Hash:       domain.StoreHash(&desc, src, nil),
	}

	_, err := s.Ensure(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownSourceKind)
}

func TestEnsure_FailedBuildLeavesNoEntry(t *testing.T) {
	s, root, fetcher, _ := newStore(t)
	plan := fetchPlan("broken", "1.0.0")

	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		Return(domain.ErrFetchFailed)

	_, err := s.Ensure(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	_, ok := s.Get(plan.Hash)
	assert.False(t, ok)
	staged, err := os.ReadDir(domain.StagingPath(root))
	require.NoError(t, err)
	assert.Empty(t, staged)

	// The next Ensure retries the build
	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		DoAndReturn(writeArtifact("broken-1.0.0.tar.zst"))

	_, err = s.Ensure(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.BuildCount())
}

func TestEnsure_ConcurrentCallersSingleBuild(t *testing.T) {
	s, _, fetcher, _ := newStore(t)
	plan := fetchPlan("ripgrep", "14.1.0")

	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Source, destDir string) error {
			time.Sleep(50 * time.Millisecond)
			return os.WriteFile(filepath.Join(destDir, "rg"), []byte("#!/bin/sh\n"), 0o755)
		}).
		Times(1)

	const callers = 8
	paths := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = s.Ensure(context.Background(), plan)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
	assert.Equal(t, int64(1), s.BuildCount())
}

func TestEnsure_CancelledCallerStopsWaiting(t *testing.T) {
	s, _, fetcher, _ := newStore(t)
	plan := fetchPlan("node", "22.4.1")

	release := make(chan struct{})
	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Source, destDir string) error {
			<-release
			return os.WriteFile(filepath.Join(destDir, "node"), []byte("bin"), 0o755)
		})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Ensure(ctx, plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrActivationCancelled)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The detached build finishes for everyone else
	close(release)
	require.Eventually(t, func() bool {
		_, ok := s.Get(plan.Hash)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnsure_RebuildsCorruptEntry(t *testing.T) {
	s, root, fetcher, _ := newStore(t)
	plan := fetchPlan("zig", "0.13.0")

	// A marker without metadata is a corrupt entry
	entryDir := filepath.Join(domain.StorePath(root), plan.Hash)
	require.NoError(t, os.MkdirAll(entryDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(entryDir, domain.BuiltMarkerName), nil, 0o644))

	_, ok := s.Get(plan.Hash)
	assert.False(t, ok)

	fetcher.EXPECT().
		Fetch(gomock.Any(), plan.Source, gomock.Any()).
		DoAndReturn(writeArtifact("zig-0.13.0.tar.zst"))

	path, err := s.Ensure(context.Background(), plan)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, domain.EntryMetaFileName))
	assert.FileExists(t, filepath.Join(path, domain.BuiltMarkerName))
	assert.Equal(t, int64(1), s.BuildCount())
}
