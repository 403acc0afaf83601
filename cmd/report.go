package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/report"
)

var (
	reportWeek   bool
	reportDate   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show per-issue totals and breaks for a day or week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report the whole ISO week")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Reference date (YYYY-MM-DD); default today")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "md", "Output format: md, csv, json or yaml")
}

func runReport(cmd *cobra.Command, args []string) error {
	f, err := report.ParseFormat(reportFormat,
		report.FormatMarkdown, report.FormatCSV, report.FormatJSON, report.FormatYAML)
	if err != nil {
		return err
	}
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()

	ref, err := referenceTime(s, reportDate)
	if err != nil {
		return err
	}
	var sum report.Summary
	if reportWeek {
		sum, err = s.ledger.WeekSummary(ref)
	} else {
		sum, err = s.ledger.DaySummary(ref)
	}
	if err != nil {
		return err
	}
	return report.RenderSummary(cmd.OutOrStdout(), f, sum)
}
