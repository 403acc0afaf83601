package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var finalizeOverwrite bool

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Close the open day at its latest action and store it",
	Long: `Finalize the open day without an explicit "day end". The day is
closed at its latest recorded instant and written to its week file.`,
	Args: cobra.NoArgs,
	RunE: runFinalize,
}

func init() {
	finalizeCmd.Flags().BoolVar(&finalizeOverwrite, "overwrite", false, "Replace the day if its week file already holds it")
}

func runFinalize(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	date := s.ledger.Date()
	res, err := s.ledger.Finalize(finalizeOverwrite)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), res)
	fmt.Fprintf(cmd.OutOrStdout(), "Day %s finalized. Booked: %s (%d records).\n",
		date, timecalc.FormatDuration(model.TotalDuration(res.Records)), len(res.Records))
	return nil
}
