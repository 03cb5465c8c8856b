package shell

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.cocoon.sh/cocoon/internal/core/ports"
	"go.trai.ch/zerr"
)

// Session is one live shell. It owns the child process, the pty when there
// is one, and the terminal restore hook.
type Session struct {
	cmd     *exec.Cmd
	ptmx    *os.File
	cleanup func()

	mu    sync.Mutex
	state domain.SessionState

	done     chan struct{}
	waitOnce sync.Once
	waitErr  error
}

var _ ports.Session = (*Session)(nil)

func newSession(cmd *exec.Cmd) *Session {
	return &Session{
		cmd:   cmd,
		state: domain.SessionInactive,
		done:  make(chan struct{}),
	}
}

// to moves the session to the next lifecycle state, rejecting transitions
// the state machine does not permit.
func (s *Session) to(next domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransitionTo(next) {
		err := zerr.With(domain.ErrSessionTransition, "from", s.state.String())
		return zerr.With(err, "to", next.String())
	}
	s.state = next
	return nil
}

// State reports the session's current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// startAttached runs the shell with the caller's stdio wired straight through.
func (s *Session) startAttached(cmd *exec.Cmd) error {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// Wait blocks until the shell exits, then restores the terminal. The exit
// error is the shell's own; nil means a clean exit.
func (s *Session) Wait() error {
	s.waitOnce.Do(func() {
		err := s.cmd.Wait()
		if s.cleanup != nil {
			s.cleanup()
		}
		s.waitErr = err
		_ = s.to(domain.SessionDeactivated)
		close(s.done)
	})
	<-s.done
	return s.waitErr
}

// Close tears the session down: the shell is killed if still running and
// the terminal restored. Safe to call after Wait and more than once.
func (s *Session) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}

	if p := s.cmd.Process; p != nil {
		_ = p.Kill()
	}
	_ = s.Wait()
	return nil
}

// closeOnDone ends the session when its context is cancelled, for callers
// that re-provision on the fly.
func (s *Session) closeOnDone(ctx context.Context) {
	select {
	case <-ctx.Done():
		_ = s.Close()
	case <-s.done:
	}
}
