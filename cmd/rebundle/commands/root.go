// Package commands implements the CLI commands for rebundle.
package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/rebundle/internal/app"
	"go.trai.ch/rebundle/internal/build"
	"go.trai.ch/rebundle/internal/core/domain"
)

// EnvPrefix prefixes the environment variables bound to flags,
// e.g. REBUNDLE_CONFIG or REBUNDLE_SEQUENTIAL.
const EnvPrefix = "REBUNDLE"

// CLI represents the command line interface for rebundle.
type CLI struct {
	app          Application
	rootCmd      *cobra.Command
	settings     *viper.Viper
	setVerbose   func(bool)
	showProgress func()
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, opts app.BuildOptions) ([]domain.BuildInfo, error)
	Changed(ctx context.Context, opts app.ChangedOptions) ([]domain.BuildInfo, error)
	Tasks(ctx context.Context, configPath string) ([]string, error)
}

// Option configures a CLI.
type Option func(*CLI)

// WithVerbosity registers the function toggling debug logging.
func WithVerbosity(fn func(verbose bool)) Option {
	return func(c *CLI) { c.setVerbose = fn }
}

// WithProgress registers the function enabling per-task progress lines.
func WithProgress(fn func()) Option {
	return func(c *CLI) { c.showProgress = fn }
}

// New creates a new CLI instance with the given app.
func New(a Application, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "rebundle",
		Short:         "Incrementally rebuild bundles that share module caches",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	settings := viper.New()
	settings.SetEnvPrefix(EnvPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to rebundle.yaml or a directory to search from (default: current directory)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("progress", false, "Print a line to stderr as each task starts and finishes")
	_ = settings.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = settings.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = settings.BindPFlag("progress", rootCmd.PersistentFlags().Lookup("progress"))

	c := &CLI{
		app:      a,
		rootCmd:  rootCmd,
		settings: settings,
	}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		if c.setVerbose != nil {
			c.setVerbose(settings.GetBool("verbose"))
		}
		if c.showProgress != nil && settings.GetBool("progress") {
			c.showProgress()
		}
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newChangedCmd())
	rootCmd.AddCommand(c.newTasksCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetInput sets the input stream read by changed --stdin. Used for testing.
func (c *CLI) SetInput(in io.Reader) {
	c.rootCmd.SetIn(in)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) configPath() string {
	return c.settings.GetString("config")
}
