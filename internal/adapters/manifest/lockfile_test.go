package manifest_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/adapters/manifest"
	"go.cocoon.sh/cocoon/internal/core/domain"
)

func TestLockfile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockfileName)
	store := manifest.NewLockfileStore()

	lf := &domain.Lockfile{
		Version:        1,
		ManifestDigest: "00112233aabbccdd",
		Packages: map[string]domain.LockedPackage{
			"python3": {Version: "3.12.4"},
			"ortools": {Version: "9.10.0", Depends: []string{"protobuf"}},
		},
	}

	require.NoError(t, store.Write(path, lf))

	got, err := store.Read(path)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, lf.Version, got.Version)
	assert.Equal(t, lf.ManifestDigest, got.ManifestDigest)
	assert.Equal(t, "3.12.4", got.Packages["python3"].Version)
	assert.Equal(t, []string{"protobuf"}, got.Packages["ortools"].Depends)
}

func TestLockfile_ReadMissing(t *testing.T) {
	store := manifest.NewLockfileStore()

	got, err := store.Read(filepath.Join(t.TempDir(), domain.LockfileName))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLockfile_ReadMalformed(t *testing.T) {
	path := writeManifest(t, "{{{not yaml")
	store := manifest.NewLockfileStore()

	_, err := store.Read(path)
	require.Error(t, err)
}
