//go:build unix

package shell

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// startInteractive runs the shell under a pty with the caller's terminal in
// raw mode. The cleanup hook restores the terminal state and is invoked on
// every exit path through Session.Wait.
func (s *Session) startInteractive(cmd *exec.Cmd) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	s.ptmx = ptmx

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			_ = pty.InheritSize(os.Stdin, ptmx)
		}
	}()
	// Seed the initial window size.
	winch <- syscall.SIGWINCH

	prev, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		signal.Stop(winch)
		close(winch)
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return err
	}

	s.cleanup = func() {
		signal.Stop(winch)
		close(winch)
		_ = term.Restore(int(os.Stdin.Fd()), prev)
		_ = ptmx.Close()
	}

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	go func() { _, _ = io.Copy(os.Stdout, ptmx) }()

	return nil
}
