package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/storage"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [week...]",
	Short: "Check the stored digests of week files",
	Long: `Recompute the digest of every finalized day and report days whose
bookings were edited by hand. Without arguments all week files (labels
like 2026-W09) are checked.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := storage.NewStore(cfg.DataDir)

	labels := args
	if len(labels) == 0 {
		labels, err = store.ListWeeks()
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	var bad int
	for _, label := range labels {
		dates, err := store.VerifyWeek(label)
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Fprintf(out, "%s  ok\n", label)
			continue
		}
		for _, d := range dates {
			fmt.Fprintf(out, "%s  %s digest mismatch\n", label, d)
		}
		bad += len(dates)
	}
	if bad > 0 {
		return apperr.New(apperr.CodeCorruptFile, "%d day(s) do not match their digest", bad)
	}
	return nil
}
