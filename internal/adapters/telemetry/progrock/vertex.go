package progrock

import (
	"fmt"
	"io"

	"github.com/vito/progrock"
	"go.cocoon.sh/cocoon/internal/core/domain"
)

// Vertex wraps a *progrock.VertexRecorder as a ports.Vertex.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Stdout returns the writer feeding the vertex's stdout stream.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Stderr returns the writer feeding the vertex's stderr stream.
func (v *Vertex) Stderr() io.Writer {
	return v.vertex.Stderr()
}

// Log writes a leveled line onto the vertex. Warnings and errors go to the
// stderr stream so renderers can tell them apart from step output.
func (v *Vertex) Log(level domain.LogLevel, msg string) {
	w := v.vertex.Stdout()
	if level >= domain.LogLevelWarn {
		w = v.vertex.Stderr()
	}
	_, _ = fmt.Fprintf(w, "[%s] %s\n", level.String(), msg)
}

// Complete marks the vertex done, recording err when non-nil.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

// Cached marks the vertex as served from the store.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}
