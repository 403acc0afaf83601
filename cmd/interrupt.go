package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

var (
	interruptComment string
	interruptFor     time.Duration
	interruptAt      clockValue
	resumeAt         clockValue
)

var interruptCmd = &cobra.Command{
	Use:   "interrupt <issue>",
	Short: "Book an interruption on top of the running task",
	Long: `Start an interruption. The running task is suspended and resumes
when the interruption ends, either explicitly with "tbl resume" or after
the default duration (--for, or default_interruption_minutes from the
config). Use --for 0 for an interruption that only ends explicitly.`,
	Args: cobra.ExactArgs(1),
	RunE: runInterrupt,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "End the running interruption and resume the suspended task",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func init() {
	interruptCmd.Flags().StringVarP(&interruptComment, "comment", "c", "", "Comment for the booking")
	interruptCmd.Flags().DurationVar(&interruptFor, "for", 0, "Default duration, e.g. 15m (default from config)")
	addAtFlag(interruptCmd.Flags(), &interruptAt)
	addAtFlag(resumeCmd.Flags(), &resumeAt)
}

func runInterrupt(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	d := s.cfg.DefaultInterruption()
	if cmd.Flags().Changed("for") {
		d = interruptFor
	}
	at := interruptAt.resolve(s.now())
	issue := model.IssueRef{ID: args[0], Comment: interruptComment}
	res, err := s.ledger.Submit(model.NewStartInterruption(at, issue, d))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if d > 0 {
		fmt.Fprintf(out, "Interrupted by %s at %s, ends at %s unless resumed earlier.\n",
			model.NormalizeIssue(issue.ID), at.Format("15:04"), at.Add(d).Format("15:04"))
	} else {
		fmt.Fprintf(out, "Interrupted by %s at %s.\n", model.NormalizeIssue(issue.ID), at.Format("15:04"))
	}
	printWarnings(cmd.ErrOrStderr(), res)
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	at := resumeAt.resolve(s.now())
	res, err := s.ledger.Submit(model.NewEndInterruption(at))
	if err != nil {
		return err
	}
	st, err := s.ledger.CurrentState(at)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if st.Running() {
		fmt.Fprintf(out, "Resumed %s at %s.\n", st.Issue.ID, at.Format("15:04"))
	} else {
		fmt.Fprintf(out, "Interruption ended at %s.\n", at.Format("15:04"))
	}
	printWarnings(cmd.ErrOrStderr(), res)
	return nil
}
