package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

var (
	startComment string
	startAt      clockValue
)

var startCmd = &cobra.Command{
	Use:   "start <issue>",
	Short: "Start working on an issue",
	Long: `Start working on an issue. A task that is already running is
suspended and resumes when the new one stops.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startComment, "comment", "c", "", "Comment for the booking")
	addAtFlag(startCmd.Flags(), &startAt)
}

func runStart(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	at := startAt.resolve(s.now())
	issue := model.IssueRef{ID: args[0], Comment: startComment}
	res, err := s.ledger.Submit(model.NewStartWork(at, issue))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Started %s at %s.\n", model.NormalizeIssue(issue.ID), at.Format("15:04"))
	printWarnings(cmd.ErrOrStderr(), res)
	return nil
}
