package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"go.trai.ch/rebundle/internal/app"
	"go.trai.ch/rebundle/internal/ui/report"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build every target once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := c.app.Build(cmd.Context(), app.BuildOptions{
				ConfigPath: c.configPath(),
				Sequential: c.settings.GetBool("sequential"),
			})
			if infos != nil {
				err = errors.Join(err, report.Render(cmd.OutOrStdout(), infos))
			}
			return err
		},
	}
	cmd.Flags().BoolP("sequential", "s", false, "Run cache groups one at a time instead of concurrently")
	_ = c.settings.BindPFlag("sequential", cmd.Flags().Lookup("sequential"))
	return cmd
}
