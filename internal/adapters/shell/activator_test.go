package shell_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cocoon.sh/cocoon/internal/adapters/shell"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newActivator(t *testing.T, program string) *shell.Activator {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return shell.New(program, log)
}

func testEnv(binDirs ...string) *domain.Environment {
	env := &domain.Environment{ID: strings.Repeat("ab", 32)}
	if len(binDirs) > 0 {
		env.Vars = []string{"PATH=" + strings.Join(binDirs, string(os.PathListSeparator))}
	}
	return env
}

// writeTool drops an executable shell script into dir.
func writeTool(t *testing.T, dir, name, body string) {
	t.Helper()
	//nolint:gosec // the test needs an executable file
	err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o700)
	require.NoError(t, err)
}

func TestExec_RunsHermeticBinary(t *testing.T) {
	binDir := t.TempDir()
	writeTool(t, binDir, "cocoon-probe", "echo provisioned ok")

	a := newActivator(t, "")
	var out bytes.Buffer

	err := a.Exec(t.Context(), testEnv(binDir), []string{"cocoon-probe"}, &out, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "provisioned ok\n", out.String())
}

func TestExec_StoreBinariesShadowHost(t *testing.T) {
	binDir := t.TempDir()
	writeTool(t, binDir, "true", "echo shadowed")

	a := newActivator(t, "")
	var out bytes.Buffer

	err := a.Exec(t.Context(), testEnv(binDir), []string{"true"}, &out, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "shadowed\n", out.String())
}

func TestExec_InjectsEnvironmentMarker(t *testing.T) {
	a := newActivator(t, "")
	env := testEnv()
	var out bytes.Buffer

	err := a.Exec(t.Context(), env, []string{"sh", "-c", `printf '%s' "$COCOON_ENV"`}, &out, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, env.ID, out.String())
}

func TestExec_PathPrepended(t *testing.T) {
	binDir := t.TempDir()
	a := newActivator(t, "")
	var out bytes.Buffer

	err := a.Exec(t.Context(), testEnv(binDir), []string{"sh", "-c", `printf '%s' "$PATH"`}, &out, io.Discard)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), binDir+string(os.PathListSeparator)),
		"expected %q to start with the store bin dir", out.String())
}

func TestExec_ExitCodeInMetadata(t *testing.T) {
	a := newActivator(t, "")

	err := a.Exec(t.Context(), testEnv(), []string{"sh", "-c", "exit 3"}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command failed")

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, 3, zErr.Metadata()["exit_code"])
	assert.Equal(t, "sh", zErr.Metadata()["command"])
}

func TestExec_EmptyCommand(t *testing.T) {
	a := newActivator(t, "")

	err := a.Exec(t.Context(), testEnv(), nil, io.Discard, io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrActivationFailed)
}

func TestExec_Cancelled(t *testing.T) {
	a := newActivator(t, "")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := a.Exec(ctx, testEnv(), []string{"sh", "-c", "sleep 5"}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrActivationCancelled)
}

func TestActivate_SessionLifecycle(t *testing.T) {
	// Under go test stdin is not a terminal, so the shell runs attached and
	// exits cleanly on immediate EOF.
	a := newActivator(t, "/bin/sh")

	s, err := a.Activate(t.Context(), testEnv())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, s.State())

	require.NoError(t, s.Wait())
	assert.Equal(t, domain.SessionDeactivated, s.State())
}

func TestActivate_CancelledBeforeStart(t *testing.T) {
	a := newActivator(t, "/bin/sh")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	s, err := a.Activate(ctx, testEnv())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, domain.ErrActivationCancelled)
}

func TestActivate_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "linger", "sleep 30")

	a := newActivator(t, filepath.Join(dir, "linger"))

	s, err := a.Activate(t.Context(), testEnv())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, s.State())

	require.NoError(t, s.Close())
	assert.Equal(t, domain.SessionDeactivated, s.State())
	require.NoError(t, s.Close())
}

func TestActivate_MissingProgram(t *testing.T) {
	a := newActivator(t, "/nonexistent/cocoon-shell")

	s, err := a.Activate(t.Context(), testEnv())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, domain.ErrActivationFailed)

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "/nonexistent/cocoon-shell", zErr.Metadata()["program"])
}
