package cli

import (
	"github.com/spf13/cobra"

	"bist-returns/internal/app"
)

var (
	exportRunID        string
	exportCSVPath      string
	exportFromSnapshot bool
	exportMaxRecords   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's records as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			RunID:        exportRunID,
			CSVPath:      exportCSVPath,
			FromSnapshot: exportFromSnapshot,
			MaxRecords:   exportMaxRecords,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "Run ID to export (defaults to the latest archived run)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().BoolVar(&exportFromSnapshot, "from-snapshot", false, "Export the snapshot file instead of an archived run")
	exportCmd.Flags().IntVar(&exportMaxRecords, "max-records", 0, "Maximum records to export (defaults to config)")
}
