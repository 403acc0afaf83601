package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/msgraph"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

var (
	outlookSyncDryRun bool
	outlookSyncIssue  string
	outlookSyncTZ     string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Book the open day's Outlook meetings as fixed bookings",
	Args:  cobra.NoArgs,
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned bookings without writing")
	outlookSyncCmd.Flags().StringVar(&outlookSyncIssue, "issue", "", "Issue to book meetings on (default from config)")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone Graph reports event times in")
	outlookCmd.AddCommand(outlookSyncCmd)
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	s, err := openSession(!outlookSyncDryRun)
	if err != nil {
		return err
	}
	defer s.close()

	day, err := bookingDate(s, "")
	if err != nil {
		return err
	}
	tz := s.cfg.OutlookTimezone()
	if outlookSyncTZ != "" {
		tz = outlookSyncTZ
	}
	issue := s.cfg.Outlook.DefaultIssue
	if outlookSyncIssue != "" {
		issue = outlookSyncIssue
	}

	out := cmd.OutOrStdout()
	ctx := context.Background()
	creds, err := msgraph.CredentialsFrom(s.cfg.Outlook)
	if err != nil {
		return err
	}
	client, err := msgraph.Connect(ctx, creds, out)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Fprintf(out, "Fetching events for %s...\n", timecalc.DateKey(day))
	meetings, err := client.Meetings(ctx, day, s.cfg.Location(), tz)
	if err != nil {
		return fmt.Errorf("fetching calendar: %w", err)
	}
	fmt.Fprintf(out, "Found %d event(s).\n", len(meetings))

	opts := msgraph.SyncOptions{
		Date:     day,
		Issue:    issue,
		Existing: s.ledger.Actions(),
		DryRun:   outlookSyncDryRun,
	}
	submit := func(a model.Action) error {
		res, err := s.ledger.Submit(a)
		if err == nil {
			printWarnings(cmd.ErrOrStderr(), res)
		}
		return err
	}
	result, err := msgraph.SyncEvents(meetings, opts, submit, out)
	if err != nil {
		return err
	}

	if outlookSyncDryRun {
		fmt.Fprintln(out, "\n[dry-run] No changes written.")
	}
	fmt.Fprintf(out, "\nSummary: %d imported, %d skipped, %d errors\n",
		result.Imported, result.Skipped, result.Errors)
	return nil
}
