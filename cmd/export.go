package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/ledger"
	"github.com/Tiliavir/booking-ledger/internal/report"
)

var (
	exportWeek    bool
	exportDate    string
	exportFormat  string
	exportRound   bool
	exportCombine bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the bookings of a day or week",
	Long: `Export bookings for import into another system. --combine merges
bookings of the same issue and comment; --round rounds them to the
configured resolution (resolution_minutes) without leaving gaps.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportWeek, "week", false, "Export the whole ISO week")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Reference date (YYYY-MM-DD); default today")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv, timecockpit, json or yaml")
	exportCmd.Flags().BoolVar(&exportRound, "round", false, "Round bookings to the configured resolution")
	exportCmd.Flags().BoolVar(&exportCombine, "combine", false, "Merge bookings of the same issue and comment")
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := report.ParseFormat(exportFormat,
		report.FormatCSV, report.FormatTimeCockpit, report.FormatJSON, report.FormatYAML)
	if err != nil {
		return err
	}
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()

	ref, err := referenceTime(s, exportDate)
	if err != nil {
		return err
	}
	opts := ledger.ExportOptions{Combine: exportCombine}
	if exportRound {
		opts.Resolution = s.cfg.Resolution()
	}
	return s.ledger.Export(cmd.OutOrStdout(), scopeOf(exportWeek), f, ref, opts)
}
