// Package shell activates provisioned environments in child shells. The
// parent process environment is never touched; everything lives and dies
// with the child.
package shell

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/term"
)

const fallbackShell = "/bin/sh"

// Activator implements ports.Activator by spawning shells and commands with
// the environment's activation paths injected.
type Activator struct {
	program string
	log     ports.Logger
}

var _ ports.Activator = (*Activator)(nil)

// New creates an Activator. An empty program defers to $SHELL, then /bin/sh.
func New(program string, log ports.Logger) *Activator {
	return &Activator{
		program: program,
		log:     log,
	}
}

// Activate starts an interactive shell inside env. With a terminal on stdin
// the shell runs under a pty with raw mode and resize handling; otherwise it
// runs with plainly wired stdio. Cancellation before the session is active
// tears everything down and returns domain.ErrActivationCancelled.
func (a *Activator) Activate(ctx context.Context, env *domain.Environment) (ports.Session, error) {
	prog := a.shellProgram()

	cmd := exec.Command(prog) //nolint:gosec // the user picks their own shell
	cmd.Env = sessionEnv(env)

	s := newSession(cmd)
	if err := s.to(domain.SessionActivating); err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		_ = s.to(domain.SessionDeactivated)
		return nil, zerr.Wrap(ctx.Err(), domain.ErrActivationCancelled.Error())
	}

	var err error
	if term.IsTerminal(int(os.Stdin.Fd())) {
		err = s.startInteractive(cmd)
	} else {
		err = s.startAttached(cmd)
	}
	if err != nil {
		_ = s.to(domain.SessionDeactivated)
		wrapped := zerr.Wrap(err, domain.ErrActivationFailed.Error())
		return nil, zerr.With(wrapped, "program", prog)
	}

	if ctx.Err() != nil {
		// Cancelled during startup: nothing user-visible may survive.
		_ = s.Close()
		return nil, zerr.Wrap(ctx.Err(), domain.ErrActivationCancelled.Error())
	}

	if err := s.to(domain.SessionActive); err != nil {
		_ = s.Close()
		return nil, err
	}

	go s.closeOnDone(ctx)

	a.log.Debug("session active: " + prog + " (environment " + shortID(env.ID) + ")")
	return s, nil
}

// Exec runs one command inside env without an interactive session. The
// command name resolves against the environment's PATH, so store binaries
// shadow host ones.
func (a *Activator) Exec(ctx context.Context, env *domain.Environment, argv []string, stdout, stderr io.Writer) error {
	if len(argv) == 0 {
		return zerr.With(domain.ErrActivationFailed, "reason", "empty command")
	}

	cmdEnv := sessionEnv(env)

	name := argv[0]
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, argv[1:]...) //nolint:gosec // user provided command
	// CommandContext rewrites Args[0] to the resolved path; keep the name
	// as invoked.
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Env = cmdEnv
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return zerr.Wrap(ctx.Err(), domain.ErrActivationCancelled.Error())
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		wrapped := zerr.With(zerr.Wrap(err, "command failed"), "command", name)
		return zerr.With(wrapped, "exit_code", exitCode)
	}

	return nil
}

func (a *Activator) shellProgram() string {
	if a.program != "" {
		return a.program
	}
	if prog := os.Getenv("SHELL"); prog != "" {
		return prog
	}
	return fallbackShell
}

// sessionEnv merges the host environment with the activation vars plus the
// COCOON_ENV marker identifying the active environment.
func sessionEnv(env *domain.Environment) []string {
	vars := slices.Clone(env.Vars)
	vars = append(vars, "COCOON_ENV="+env.ID)
	return resolveEnvironment(os.Environ(), vars)
}

// resolveEnvironment merges environment variables, activation values winning.
// PATH is prepended instead of replaced so store binaries shadow host ones
// while the host tools stay reachable.
func resolveEnvironment(hostEnv, envVars []string) []string {
	merged := make(map[string]string, len(hostEnv)+len(envVars))
	for _, entry := range hostEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	for _, entry := range envVars {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" && merged["PATH"] != "" {
			merged[k] = v + string(os.PathListSeparator) + merged["PATH"]
			continue
		}
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env, not the process's own PATH.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: an empty path element means ".".
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

func shortID(id string) string {
	if len(id) < 12 {
		return id
	}
	return id[:12]
}
