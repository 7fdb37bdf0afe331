package cli

import (
	"github.com/spf13/cobra"

	"thinkpad-price-tracker/internal/app"
)

var repairDryRun bool

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Reattach listings whose parsed model disagrees with their product",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Repair(cmd.Context(), app.RepairOptions{DryRun: repairDryRun})
	},
}

func init() {
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Report without writing")
}
