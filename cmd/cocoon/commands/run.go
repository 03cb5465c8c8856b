package commands

import (
	"github.com/spf13/cobra"
	"go.cocoon.sh/cocoon/internal/app"
	"go.cocoon.sh/cocoon/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command inside the project environment",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			manifestPath, _ := cmd.Flags().GetString("file")
			noLock, _ := cmd.Flags().GetBool("no-lock")
			watch, _ := cmd.Flags().GetBool("watch")

			return c.app.Run(cmd.Context(), app.RunOptions{
				ManifestPath: manifestPath,
				NoLock:       noLock,
				Watch:        watch,
				Argv:         args,
			})
		},
	}
	cmd.Flags().StringP("file", "f", domain.ManifestFileName, "Path to the project manifest")
	cmd.Flags().Bool("no-lock", false, "Ignore the lockfile and resolve fresh")
	cmd.Flags().BoolP("watch", "w", false, "Re-provision and restart the command on manifest changes")
	// Everything after the first positional belongs to the wrapped command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
