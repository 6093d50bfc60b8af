package ports

import (
	"context"
	"io"
)

// OutputSink receives the bundled bytes of a target.
//
//go:generate go run go.uber.org/mock/mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks
type OutputSink interface {
	// Write consumes output for target. It is called once per successful build.
	Write(ctx context.Context, target string, output io.Reader) error
}
