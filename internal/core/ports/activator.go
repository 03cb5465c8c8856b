package ports

import (
	"context"
	"io"

	"go.cocoon.sh/cocoon/internal/core/domain"
)

// Session is a live activated shell. It owns the child process and the
// terminal state, and restores both on teardown.
type Session interface {
	// Wait blocks until the session ends and returns the shell's exit error,
	// nil for a clean exit.
	Wait() error

	// Close tears the session down and restores the terminal. Safe to call
	// after Wait and more than once.
	Close() error

	// State reports the session's current lifecycle state.
	State() domain.SessionState
}

// Activator starts shells inside provisioned environments. Activation never
// mutates the parent shell; the environment exists only for the child's
// lifetime.
//
//go:generate go run go.uber.org/mock/mockgen -source=activator.go -destination=mocks/mock_activator.go -package=mocks
type Activator interface {
	// Activate starts an interactive shell inside env. Cancellation before
	// the session reaches the active state returns
	// domain.ErrActivationCancelled with nothing user-visible left behind.
	Activate(ctx context.Context, env *domain.Environment) (Session, error)

	// Exec runs a single command inside env with stdio wired through,
	// without an interactive session.
	Exec(ctx context.Context, env *domain.Environment, argv []string, stdout, stderr io.Writer) error
}
