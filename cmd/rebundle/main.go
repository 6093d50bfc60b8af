// Package main is the entry point for the rebundle CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/rebundle/cmd/rebundle/commands"
	"go.trai.ch/rebundle/internal/app"
	_ "go.trai.ch/rebundle/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, wired))
}

// wired resolves the components from the registered graft nodes.
func wired(ctx context.Context) (*app.Components, func(), error) {
	c, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

type verboser interface {
	SetVerbose(verbose bool)
}

type progressShower interface {
	ShowProgress(out io.Writer)
}

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	provider ComponentProvider,
) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, cleanup, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	defer cleanup()

	var opts []commands.Option
	if v, ok := components.Logger.(verboser); ok {
		opts = append(opts, commands.WithVerbosity(v.SetVerbose))
	}
	if p, ok := components.Telemetry.(progressShower); ok {
		opts = append(opts, commands.WithProgress(func() { p.ShowProgress(stderr) }))
	}

	cli := commands.New(components.App, opts...)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return 1
	}
	return 0
}
