package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/report"
)

var (
	recentLimit  int
	recentFormat string
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently booked issues with their comments",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 0, "Number of issues to list (default max_recent_issues from config)")
	recentCmd.Flags().StringVarP(&recentFormat, "format", "f", "md", "Output format: md, json or yaml")
}

func runRecent(cmd *cobra.Command, args []string) error {
	f, err := report.ParseFormat(recentFormat, report.FormatMarkdown, report.FormatJSON, report.FormatYAML)
	if err != nil {
		return err
	}
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()

	limit := s.cfg.MaxRecentIssues
	if recentLimit > 0 {
		limit = recentLimit
	}
	issues, err := s.ledger.RecentIssues(s.now(), limit)
	if err != nil {
		return err
	}
	return report.RenderRecent(cmd.OutOrStdout(), f, issues)
}
