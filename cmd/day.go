package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/ledger"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var (
	dayStartAt   clockValue
	dayEndAt     clockValue
	dayOverwrite bool
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Open or close the working day",
}

var dayStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open a new working day",
	Args:  cobra.NoArgs,
	RunE:  runDayStart,
}

var dayEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Close the working day and store it in its week file",
	Args:  cobra.NoArgs,
	RunE:  runDayEnd,
}

func init() {
	addAtFlag(dayStartCmd.Flags(), &dayStartAt)
	addAtFlag(dayEndCmd.Flags(), &dayEndAt)
	dayEndCmd.Flags().BoolVar(&dayOverwrite, "overwrite", false, "Replace the day if its week file already holds it")
	dayCmd.AddCommand(dayStartCmd)
	dayCmd.AddCommand(dayEndCmd)
}

func runDayStart(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	at := dayStartAt.resolve(s.now())
	res, err := s.ledger.Submit(model.NewStartDay(at))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Day %s started at %s.\n", timecalc.DateKey(at), at.Format("15:04"))
	printWarnings(cmd.ErrOrStderr(), res)
	return nil
}

func runDayEnd(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	date := s.ledger.Date()
	at := dayEndAt.resolve(s.now())
	var opts []ledger.SubmitOption
	if dayOverwrite {
		opts = append(opts, ledger.WithOverwrite())
	}
	res, err := s.ledger.Submit(model.NewEndDay(at), opts...)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), res)
	fmt.Fprintf(cmd.OutOrStdout(), "Day %s closed at %s. Booked: %s (%d records).\n",
		date, at.Format("15:04"), timecalc.FormatDuration(model.TotalDuration(res.Records)), len(res.Records))
	return nil
}
