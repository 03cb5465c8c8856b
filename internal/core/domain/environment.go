package domain

// ActivationPath is one store-backed directory exposed on the session PATH.
type ActivationPath struct {
	// Package is the closure member the directory belongs to.
	Package InternedString

	// Dir is the absolute store directory to expose.
	Dir string
}

// Environment is an ephemeral, activatable description of a provisioned
// shell: the closure it was built from, the PATH entries in activation order,
// and extra variables. It references store entries and never owns them.
type Environment struct {
	// ID is the deterministic environment hash derived from the member store hashes.
	ID string

	// Closure is the validated package set this environment exposes.
	Closure *ResolvedClosure

	// Paths are the activation directories in closure order, dependencies
	// first. On name collisions the earlier entry wins.
	Paths []ActivationPath

	// Hashes are the member store hashes in closure order. Session
	// registration uses them to keep live entries out of garbage collection.
	Hashes []string

	// Vars are additional environment variables in "KEY=VALUE" format.
	Vars []string
}

// SessionState is the lifecycle state of a shell session.
type SessionState int

const (
	// SessionInactive is the initial state before activation starts.
	SessionInactive SessionState = iota
	// SessionActivating covers provisioning and shell startup.
	SessionActivating
	// SessionActive means the user shell is running inside the environment.
	SessionActive
	// SessionDeactivated is the terminal state; the parent shell is untouched.
	SessionDeactivated
)

// String returns the string representation of the SessionState.
func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "inactive"
	case SessionActivating:
		return "activating"
	case SessionActive:
		return "active"
	case SessionDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether the state machine permits moving to next.
// Activation failures jump Activating straight to Deactivated.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	switch s {
	case SessionInactive:
		return next == SessionActivating
	case SessionActivating:
		return next == SessionActive || next == SessionDeactivated
	case SessionActive:
		return next == SessionDeactivated
	default:
		return false
	}
}
