//go:build !unix

package shell

import "os/exec"

// Interactive sessions need a pty; on platforms without one the shell runs
// with plainly wired stdio instead.
func (s *Session) startInteractive(cmd *exec.Cmd) error {
	return s.startAttached(cmd)
}
