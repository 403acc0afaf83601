package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/normalize"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running task and today's booked time",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.close()

	st, err := s.ledger.CurrentState(s.now())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch st.Phase {
	case normalize.Idle:
		fmt.Fprintln(out, "No day in progress.")
		return nil
	case normalize.DayOpen:
		fmt.Fprintf(out, "Day %s open, no task running.\n", st.Date)
	case normalize.Working:
		fmt.Fprintln(out, "Running:")
		issue := st.Issue.ID
		if st.Issue.Comment != "" {
			issue += " (" + st.Issue.Comment + ")"
		}
		fmt.Fprintf(out, "  Issue:   %s\n", issue)
		fmt.Fprintf(out, "  Kind:    %s\n", st.Kind)
		fmt.Fprintf(out, "  Since:   %s\n", st.Since.Format("15:04"))
		fmt.Fprintf(out, "  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(st.Elapsed))
		if st.Depth > 0 {
			fmt.Fprintf(out, "  Suspended: %d\n", st.Depth)
		}
	}
	fmt.Fprintf(out, "Today: %s booked.\n", timecalc.FormatDuration(st.Booked))
	return nil
}
