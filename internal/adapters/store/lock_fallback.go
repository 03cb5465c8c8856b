//go:build !unix

package store

import "os"

// Advisory file locks are unavailable here; in-process exclusion through
// the singleflight group still applies.
func lockFile(_ *os.File) error { return nil }

func tryLockFile(_ *os.File) (bool, error) { return true, nil }

func unlockFile(_ *os.File) error { return nil }

// Liveness cannot be probed portably, so records are kept.
func processAlive(pid int) bool { return pid > 0 }
