package cmd

import (
	"github.com/marcus/expensesync/internal/command"
	"github.com/marcus/expensesync/internal/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all active (non-deleted) expenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer st.Close()

		qry := command.NewQueryService(st)
		expenses, err := qry.ListActive()
		if err != nil {
			output.Error("list expenses: %v", err)
			return err
		}

		if jsonOutputFlag {
			return output.JSON(expenses)
		}
		if len(expenses) == 0 {
			output.Info("no expenses.")
			return nil
		}
		for _, e := range expenses {
			output.Info("%s", output.ExpenseOneLiner(e))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
