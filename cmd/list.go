package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/ledger"
	"github.com/Tiliavir/booking-ledger/internal/report"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var (
	listWeek bool
	listDate string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bookings of a day or week",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listWeek, "week", false, "List the whole ISO week")
	listCmd.Flags().StringVar(&listDate, "date", "", "Reference date (YYYY-MM-DD); default today")
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()

	ref, err := referenceTime(s, listDate)
	if err != nil {
		return err
	}
	return s.ledger.Export(cmd.OutOrStdout(), scopeOf(listWeek), report.FormatMarkdown, ref, ledger.ExportOptions{})
}

func scopeOf(week bool) report.Scope {
	if week {
		return report.ScopeWeek
	}
	return report.ScopeDay
}

// referenceTime resolves a --date flag to an instant on that date. Today
// resolves to now so the running task is included.
func referenceTime(s *session, date string) (time.Time, error) {
	now := s.now()
	if date == "" || date == timecalc.DateKey(now) {
		return now, nil
	}
	d, err := timecalc.ParseDate(date, s.cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date value %q: %w", date, err)
	}
	return d, nil
}
