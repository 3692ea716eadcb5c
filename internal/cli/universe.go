package cli

import (
	"github.com/spf13/cobra"
)

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Resolve and print the symbol universe",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Universe(cmd.Context())
	},
}
