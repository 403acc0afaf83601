package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var (
	amendComment   string
	amendOverwrite bool
)

var amendCmd = &cobra.Command{
	Use:   "amend <date> <issue> <from> <to>",
	Short: "Correct a finalized day with a fixed booking",
	Long: `Book <issue> from <from> to <to> (HH:MM) on an already finalized
<date> (YYYY-MM-DD) and rewrite the day in its week file. The booking
overwrites whatever the span held. Requires --overwrite.`,
	Args: cobra.ExactArgs(4),
	RunE: runAmend,
}

func init() {
	amendCmd.Flags().StringVarP(&amendComment, "comment", "c", "", "Comment for the booking")
	amendCmd.Flags().BoolVar(&amendOverwrite, "overwrite", false, "Confirm rewriting finalized bookings")
}

func runAmend(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	day, err := timecalc.ParseDate(args[0], s.cfg.Location())
	if err != nil {
		return err
	}
	span, err := parseSpan(args[2], args[3], day)
	if err != nil {
		return err
	}
	correction := model.NewBookFixed(span, model.IssueRef{ID: args[1], Comment: amendComment})
	res, err := s.ledger.Amend(day, []model.Action{correction}, amendOverwrite)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), res)
	fmt.Fprintf(cmd.OutOrStdout(), "Day %s amended. Booked: %s (%d records).\n",
		args[0], timecalc.FormatDuration(model.TotalDuration(res.Records)), len(res.Records))
	return nil
}
