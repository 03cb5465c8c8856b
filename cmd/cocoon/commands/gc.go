package commands

import (
	"github.com/spf13/cobra"
	"go.cocoon.sh/cocoon/internal/app"
)

func (c *CLI) newGCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove store entries no live session references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			return c.app.GC(cmd.Context(), app.GCOptions{
				DryRun: dryRun,
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "Report what would be removed without removing anything")
	return cmd
}
