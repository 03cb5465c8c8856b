package resolver_test

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/engine/resolver"
)

// The canonical rendering of a resolved closure feeds lockfile staleness
// checks, so its exact bytes are pinned here.
func TestResolve_CanonicalBytesGolden(t *testing.T) {
	idx := &fakeIndex{releases: map[string][]domain.PackageDescriptor{
		"python3":  {fetchDesc("python3", "3.12.4")},
		"ortools":  {recipeDesc("ortools", "9.10.0", []string{"./configure", "make install"}, "protobuf@^4.25")},
		"protobuf": {fetchDesc("protobuf", "4.26.1")},
	}}
	r := resolver.New(idx, domain.PreferHighest)

	closure, err := r.Resolve(context.Background(), requests(t, "python3@^3.12", "ortools@"))
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "closure_canonical", closure.CanonicalBytes())
}
