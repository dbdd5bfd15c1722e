// Package progrock provides the Progrock implementation of the telemetry
// adapter, rendering one vertex per recipe run.
package progrock

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/ladle/internal/core/ports"
)

var _ ports.Tracer = (*Tracer)(nil)

// Tracer implements ports.Tracer on a progrock recording session.
type Tracer struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Tracer rendering to a default tape.
func New() *Tracer {
	return NewTracer(progrock.NewTape())
}

// NewTracer creates a Tracer recording to the given writer.
func NewTracer(w progrock.Writer) *Tracer {
	return &Tracer{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start opens a vertex named after the unit of work.
func (t *Tracer) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	d := digest.FromString(name)
	return ctx, &Span{vertex: t.rec.Vertex(d, name)}
}

// EmitPlan records the scheduled recipe set as a dedicated vertex so the
// rendered tape shows the whole plan before any worker starts.
func (t *Tracer) EmitPlan(_ context.Context, recipes []string) {
	d := digest.FromString("plan")
	v := t.rec.Vertex(d, fmt.Sprintf("plan (%d recipes)", len(recipes)))
	for _, r := range recipes {
		_, _ = fmt.Fprintln(v.Stdout(), r)
	}
	v.Done(nil)
}

// Close flushes and closes the recording session.
func (t *Tracer) Close() error {
	if c, ok := t.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Span implements ports.Span wrapping *progrock.VertexRecorder.
type Span struct {
	vertex *progrock.VertexRecorder
	err    error
}

// Write streams output onto the vertex.
func (s *Span) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// End completes the vertex, carrying any recorded error.
func (s *Span) End() {
	s.vertex.Done(s.err)
}

// RecordError marks the vertex as failed when it ends.
func (s *Span) RecordError(err error) {
	s.err = err
}

// SetAttribute records a key-value pair on the vertex output stream.
func (s *Span) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}

// Cached marks the vertex as satisfied from cache.
func (s *Span) Cached() {
	s.vertex.Cached()
}
