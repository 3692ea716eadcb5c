package cli

import (
	"github.com/spf13/cobra"
)

var (
	snapshotTop int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Summarise the cached snapshot without publishing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SnapshotSummary(snapshotTop)
	},
}

func init() {
	snapshotCmd.Flags().IntVar(&snapshotTop, "top", 5, "Number of top movers to list")
}
