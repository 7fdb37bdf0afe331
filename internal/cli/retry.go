package cli

import (
	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Replay items from the failure sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RetryFailed(cmd.Context())
	},
}
