package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/rebundle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputSink = (*Sink)(nil)

// TargetPlaceholder is replaced by the target name in output file templates.
const TargetPlaceholder = "{target}"

// Sink writes bundle output to files below a directory.
type Sink struct {
	dir      string
	template string
}

// NewSink creates a Sink writing each target to dir/template, where template
// may contain TargetPlaceholder.
func NewSink(dir, template string) *Sink {
	return &Sink{dir: dir, template: template}
}

// Path returns the file the output of target is written to.
func (s *Sink) Path(target string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(s.template, TargetPlaceholder, target))
}

// Write replaces the output file of target with the contents of output.
// Readers never observe a partially written file.
func (s *Sink) Write(ctx context.Context, target string, output io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.Path(target)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create temporary output file"), "path", dir)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, output); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, "failed to write output"), "target", target)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to close output"), "target", target)
	}
	//nolint:gosec // Output files are meant to be readable
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to set output permissions"), "path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to replace output file"), "path", path)
	}
	return nil
}
