package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var (
	bookComment string
	bookDate    string
)

var bookCmd = &cobra.Command{
	Use:   "book <issue> <from> <to>",
	Short: "Book a fixed interval, overriding what the stack recorded",
	Long: `Book a completed interval (HH:MM or RFC3339) on the open day, or on
--date when no day is open. The booking wins over live tracking for the
span it covers.`,
	Args: cobra.ExactArgs(3),
	RunE: runBook,
}

func init() {
	bookCmd.Flags().StringVarP(&bookComment, "comment", "c", "", "Comment for the booking")
	bookCmd.Flags().StringVar(&bookDate, "date", "", "Date of the booking (YYYY-MM-DD); default the open day or today")
}

func runBook(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	ref, err := bookingDate(s, bookDate)
	if err != nil {
		return err
	}
	span, err := parseSpan(args[1], args[2], ref)
	if err != nil {
		return err
	}
	issue := model.IssueRef{ID: args[0], Comment: bookComment}
	res, err := s.ledger.Submit(model.NewBookFixed(span, issue))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Booked %s %s (%s).\n",
		model.NormalizeIssue(issue.ID), span, timecalc.FormatDuration(span.Duration()))
	printWarnings(cmd.ErrOrStderr(), res)
	return nil
}

// bookingDate resolves --date, falling back to the open day and then today.
func bookingDate(s *session, date string) (time.Time, error) {
	loc := s.cfg.Location()
	switch {
	case date != "":
		d, err := timecalc.ParseDate(date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date value %q: %w", date, err)
		}
		return d, nil
	case s.ledger.Date() != "":
		return timecalc.ParseDate(s.ledger.Date(), loc)
	default:
		return timecalc.StartOfDay(s.now()), nil
	}
}

func parseSpan(from, to string, ref time.Time) (model.Interval, error) {
	start, err := parseClock(from, ref)
	if err != nil {
		return model.Interval{}, err
	}
	end, err := parseClock(to, ref)
	if err != nil {
		return model.Interval{}, err
	}
	return model.NewInterval(start, end), nil
}
