package progrock

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vito/progrock"
)

// Progress is a progrock.Writer printing one plain line whenever a vertex
// starts or completes. Internal vertices are skipped.
type Progress struct {
	mu   sync.Mutex
	out  io.Writer
	runs map[string]*run
}

type run struct {
	started time.Time
	done    bool
}

// NewProgress creates a Progress printing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{
		out:  out,
		runs: make(map[string]*run),
	}
}

// WriteStatus prints the transitions carried by update. Vertices re-send
// their full state on every change, so each start and completion is printed
// once per run.
func (p *Progress) WriteStatus(update *progrock.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, v := range update.Vertexes {
		if v.Internal || v.Started == nil {
			continue
		}

		started := v.Started.AsTime()
		r, ok := p.runs[v.Id]
		if !ok || !r.started.Equal(started) {
			r = &run{started: started}
			p.runs[v.Id] = r
			if _, err := fmt.Fprintf(p.out, "start   %s\n", v.Name); err != nil {
				return err
			}
		}

		if v.Completed == nil || r.done {
			continue
		}
		r.done = true

		elapsed := v.Completed.AsTime().Sub(started).Round(time.Millisecond)
		var err error
		switch {
		case v.Canceled:
			_, err = fmt.Fprintf(p.out, "stopped %s (%s)\n", v.Name, elapsed)
		case v.Error != nil:
			_, err = fmt.Fprintf(p.out, "failed  %s (%s): %s\n", v.Name, elapsed, v.GetError())
		case v.Cached:
			_, err = fmt.Fprintf(p.out, "cached  %s\n", v.Name)
		default:
			_, err = fmt.Fprintf(p.out, "done    %s (%s)\n", v.Name, elapsed)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the output stream belongs to the caller.
func (p *Progress) Close() error {
	return nil
}
