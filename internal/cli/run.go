package cli

import (
	"github.com/spf13/cobra"

	"bist-returns/internal/app"
)

var (
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one acquisition pass and publish the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			OutputPath: runOutput,
		}
		return getApp().RunOnce(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runOutput, "output", "", "Write the published dataset JSON to this path (\"-\" for stdout)")
}
