package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Retract the most recent action of the open day",
	Args:  cobra.NoArgs,
	RunE:  runUndo,
}

func runUndo(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.ledger.Retract()
	if err != nil {
		return err
	}
	desc := string(a.Kind)
	if a.Issue != "" {
		desc += " " + a.Issue
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Retracted %s at %s.\n", desc, a.At.Format("15:04"))
	if s.ledger.Date() == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No day in progress.")
	}
	return nil
}
