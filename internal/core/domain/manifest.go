package domain

// Manifest is the parsed project manifest: exactly one interpreter selection
// plus the library packages to expose alongside it.
type Manifest struct {
	// Version is the manifest format version string (e.g., "1").
	Version string

	// Interpreter is the runtime selection (e.g., python3@^3.12).
	Interpreter PackageRequest

	// Packages are the requested library packages in declaration order.
	Packages []PackageRequest
}

// Requests returns all package requests with the interpreter first, in
// declaration order. This is the resolver input; its order decides path
// precedence on name collisions.
func (m *Manifest) Requests() []PackageRequest {
	out := make([]PackageRequest, 0, len(m.Packages)+1)
	out = append(out, m.Interpreter)
	out = append(out, m.Packages...)
	return out
}
