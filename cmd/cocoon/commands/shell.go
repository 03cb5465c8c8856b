package commands

import (
	"github.com/spf13/cobra"
	"go.cocoon.sh/cocoon/internal/app"
	"go.cocoon.sh/cocoon/internal/core/domain"
)

func (c *CLI) newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell inside the project environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifestPath, _ := cmd.Flags().GetString("file")
			noLock, _ := cmd.Flags().GetBool("no-lock")

			return c.app.Shell(cmd.Context(), app.ShellOptions{
				ManifestPath: manifestPath,
				NoLock:       noLock,
			})
		},
	}
	cmd.Flags().StringP("file", "f", domain.ManifestFileName, "Path to the project manifest")
	cmd.Flags().Bool("no-lock", false, "Ignore the lockfile and resolve fresh")
	return cmd
}
