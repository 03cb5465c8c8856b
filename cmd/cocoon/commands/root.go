// Package commands implements the CLI commands for the cocoon provisioning tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.cocoon.sh/cocoon/internal/app"
	"go.cocoon.sh/cocoon/internal/build"
	"go.cocoon.sh/cocoon/internal/core/ports"
)

// CLI represents the command line interface for cocoon.
type CLI struct {
	app     Application
	log     ports.Logger
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Shell(ctx context.Context, opts app.ShellOptions) error
	Run(ctx context.Context, opts app.RunOptions) error
	GC(ctx context.Context, opts app.GCOptions) error
}

// New creates a new CLI instance with the given app and logger.
func New(a Application, log ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:           "cocoon",
		Short:         "Reproducible project environments from a single manifest",
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

	c := &CLI{
		app:     a,
		log:     log,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonMode, _ := cmd.Flags().GetBool("json")
		c.configureLogging(verbose, jsonMode)
	}

	rootCmd.AddCommand(c.newShellCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newGCCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// configureLogging applies the persistent logging flags. The setters live on
// the concrete logger, not the port, so absent capabilities are skipped.
func (c *CLI) configureLogging(verbose, jsonMode bool) {
	if c.log == nil {
		return
	}
	if verbose {
		if v, ok := c.log.(interface{ SetVerbose(bool) }); ok {
			v.SetVerbose(true)
		}
	}
	if jsonMode {
		if j, ok := c.log.(interface{ SetJSON(bool) }); ok {
			j.SetJSON(true)
		}
	}
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

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
