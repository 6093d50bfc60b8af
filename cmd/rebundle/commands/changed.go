package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/rebundle/internal/app"
	"go.trai.ch/rebundle/internal/ui/report"
)

func (c *CLI) newChangedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changed <path>...",
		Short: "Build every target, then rebuild the targets affected by the given paths",
		Long: `Build every target, then rebuild the targets affected by the given paths.

A target is affected when its latest bundle included one of the paths, or when
it has never been bundled successfully. Directories expand to the files below
them. Paths matching the configured ignore patterns are dropped.

With --stdin the command keeps running after the first rebuild and reads one
changed path per line from standard input, rebuilding after every line until
the input ends. This lets an external file watcher drive rebundle.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if c.settings.GetBool("stdin") {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.settings.GetBool("stdin") {
				return c.follow(cmd, args)
			}
			return c.changed(cmd, args)
		},
	}
	cmd.Flags().Bool("stdin", false, "Keep running and read changed paths from standard input, one per line")
	_ = c.settings.BindPFlag("stdin", cmd.Flags().Lookup("stdin"))
	return cmd
}

func (c *CLI) changed(cmd *cobra.Command, paths []string) error {
	infos, err := c.app.Changed(cmd.Context(), app.ChangedOptions{
		ConfigPath: c.configPath(),
		Paths:      paths,
	})
	if infos != nil {
		err = errors.Join(err, report.Render(cmd.OutOrStdout(), infos))
	}
	return err
}

// follow rebuilds once per input line. A failed rebuild is reported and the
// loop carries on; it ends when the input is exhausted or the context is
// cancelled.
func (c *CLI) follow(cmd *cobra.Command, paths []string) error {
	ctx := cmd.Context()
	c.reportFailure(cmd, c.changed(cmd, paths))

	var scanErr error
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return scanErr
			}
			path := strings.TrimSpace(line)
			if path == "" {
				continue
			}
			c.reportFailure(cmd, c.changed(cmd, []string{path}))
		}
	}
}

func (c *CLI) reportFailure(cmd *cobra.Command, err error) {
	if err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error: "+err.Error())
	}
}
