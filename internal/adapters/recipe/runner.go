// Package recipe implements the RecipeRunner port by executing declared
// build steps with the system shell.
//
// Steps run in order inside the staging directory. The step environment
// carries COCOON_OUT (the staging directory), one COCOON_DEP_<NAME> variable
// per dependency store path, and a PATH with every dependency's bin
// directory prepended.
package recipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
)

const stderrTailLines = 20

var _ ports.RecipeRunner = (*Runner)(nil)

// Runner implements ports.RecipeRunner.
type Runner struct {
	log ports.Logger
}

// NewRunner creates a new RecipeRunner.
func NewRunner(log ports.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes plan's recipe steps in order inside stagingDir. A recipe
// without steps is a valid meta package and produces an empty artifact.
func (r *Runner) Run(ctx context.Context, plan domain.BuildPlan, stagingDir string) error {
	env := stepEnvironment(plan, stagingDir)

	for i, step := range plan.Source.Steps {
		r.log.Debug("recipe step " + plan.Descriptor.Ref() + ": " + step)

		if err := r.runStep(ctx, step, stagingDir, env); err != nil {
			stepErr := zerr.With(err, "package", plan.Descriptor.Ref())
			return zerr.With(stepErr, "step", fmt.Sprintf("%d/%d", i+1, len(plan.Source.Steps)))
		}
	}

	return nil
}

// runStep runs one step under the system shell, capturing stderr for error
// reporting and streaming output to the context vertex when one is attached.
func (r *Runner) runStep(ctx context.Context, step, dir string, env []string) error {
	//nolint:gosec // steps come from the resolved package descriptor
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", step)
	cmd.Dir = dir
	cmd.Env = env

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if vertex, ok := ports.VertexFromContext(ctx); ok {
		cmd.Stdout = vertex.Stdout()
		cmd.Stderr = io.MultiWriter(&stderr, vertex.Stderr())
	}

	if err := cmd.Run(); err != nil {
		buildErr := zerr.Wrap(err, domain.ErrBuildFailed.Error())
		buildErr = zerr.With(buildErr, "command", step)
		return zerr.With(buildErr, "stderr", tailLines(stderr.String(), stderrTailLines))
	}

	return nil
}

// stepEnvironment composes the environment for recipe steps. Dependency
// names are sorted so the environment is deterministic.
func stepEnvironment(plan domain.BuildPlan, stagingDir string) []string {
	env := append(os.Environ(), "COCOON_OUT="+stagingDir)

	names := make([]string, 0, len(plan.DepPaths))
	for name := range plan.DepPaths {
		names = append(names, name)
	}
	sort.Strings(names)

	binDirs := make([]string, 0, len(names))
	for _, name := range names {
		path := plan.DepPaths[name]
		env = append(env, "COCOON_DEP_"+envName(name)+"="+path)
		binDirs = append(binDirs, filepath.Join(path, "bin"))
	}

	if len(binDirs) > 0 {
		env = append(env, "PATH="+strings.Join(binDirs, string(os.PathListSeparator))+string(os.PathListSeparator)+os.Getenv("PATH"))
	}

	return env
}

// envName maps a package name onto an environment variable fragment.
func envName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// tailLines keeps the last max lines of command output for error metadata.
func tailLines(s string, max int) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[len(lines)-max:], "\n")
}
