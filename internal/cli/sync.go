package cli

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch and reconcile one batch of listings now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SyncOnce(cmd.Context())
	},
}
