package cli

import (
	"github.com/spf13/cobra"

	"thinkpad-price-tracker/internal/app"
)

var cleanupDryRun bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove junk products, off-category listings, and orphaned products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Cleanup(cmd.Context(), app.CleanupOptions{DryRun: cleanupDryRun})
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report without deleting")
}
