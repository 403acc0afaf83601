package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

var stopAt clockValue

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running work task",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	addAtFlag(stopCmd.Flags(), &stopAt)
}

func runStop(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	at := stopAt.resolve(s.now())
	before, err := s.ledger.CurrentState(at)
	if err != nil {
		return err
	}
	res, err := s.ledger.Submit(model.NewEndWork(at))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s. Elapsed: %s\n",
		before.Issue.ID, formatElapsed(int64(before.Elapsed.Seconds())))
	printWarnings(cmd.ErrOrStderr(), res)
	return nil
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
