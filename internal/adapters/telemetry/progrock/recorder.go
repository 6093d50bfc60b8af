// Package progrock records task executions as progrock vertices.
package progrock

import (
	"context"
	"io"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/rebundle/internal/core/ports"
)

// Recorder implements ports.Telemetry on top of progrock. Status updates fan
// out to every attached writer; with none attached they are dropped.
type Recorder struct {
	sink *sink
	rec  *progrock.Recorder
}

// New creates a Recorder with no writers attached.
func New() *Recorder {
	return NewRecorder()
}

// NewRecorder creates a Recorder writing to ws.
func NewRecorder(ws ...progrock.Writer) *Recorder {
	s := &sink{writers: ws}
	return &Recorder{
		sink: s,
		rec:  progrock.NewRecorder(s),
	}
}

// Attach adds w to the writers receiving later status updates.
func (r *Recorder) Attach(w progrock.Writer) {
	r.sink.add(w)
}

// ShowProgress prints a line to out whenever a task starts or finishes.
func (r *Recorder) ShowProgress(out io.Writer) {
	r.Attach(NewProgress(out))
}

// Record starts a vertex named after the task. Vertices are keyed by the
// digest of their name, so re-running a task updates the same vertex.
func (r *Recorder) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	var cfg ports.VertexConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var vopts []progrock.VertexOpt
	if cfg.Internal {
		vopts = append(vopts, progrock.Internal())
	}

	v := r.rec.Vertex(digest.FromString(name), name, vopts...)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// Close closes every attached writer.
func (r *Recorder) Close() error {
	return r.sink.Close()
}

type sink struct {
	mu      sync.Mutex
	writers progrock.MultiWriter
}

func (s *sink) add(w progrock.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writers = append(s.writers, w)
}

func (s *sink) WriteStatus(update *progrock.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writers.WriteStatus(update)
}

func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writers.Close()
}
