package cmd

import (
	"fmt"

	"github.com/marcus/expensesync/internal/command"
	"github.com/marcus/expensesync/internal/output"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an expense (tombstoned, not purged)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer st.Close()

		svc, err := newService(st)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		ok, err := svc.Delete(args[0])
		if err != nil {
			output.Error("delete expense: %v", err)
			return err
		}
		if !ok {
			err := fmt.Errorf("expense %s: %w", args[0], command.ErrNotFound)
			output.Error("%v", err)
			return err
		}

		output.Success("deleted %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
