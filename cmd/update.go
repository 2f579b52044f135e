package cmd

import (
	"fmt"

	"github.com/marcus/expensesync/internal/command"
	"github.com/marcus/expensesync/internal/output"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an existing expense",
	Args:  cobra.ExactArgs(1),
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

		var upd command.ExpenseUpdate
		if cmd.Flags().Changed("description") {
			d := mustString(cmd, "description")
			upd.Description = &d
		}
		if cmd.Flags().Changed("category") {
			c := mustString(cmd, "category")
			upd.Category = &c
		}
		if cmd.Flags().Changed("date") {
			dt := mustString(cmd, "date")
			upd.Date = &dt
		}
		if cmd.Flags().Changed("amount") {
			amount, _ := cmd.Flags().GetInt64("amount")
			upd.Amount = &amount
		}

		updated, err := svc.Update(args[0], upd)
		if err != nil {
			output.Error("update expense: %v", err)
			return err
		}
		if updated == nil {
			err := fmt.Errorf("expense %s: %w", args[0], command.ErrNotFound)
			output.Error("%v", err)
			return err
		}

		if jsonOutputFlag {
			return output.JSON(updated)
		}
		output.Success("updated %s", updated.ExpenseID)
		return nil
	},
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	updateCmd.Flags().String("description", "", "new description")
	updateCmd.Flags().Int64("amount", 0, "new amount in minor currency units (cents)")
	updateCmd.Flags().String("category", "", "new category")
	updateCmd.Flags().String("date", "", "new date (RFC 3339)")
	rootCmd.AddCommand(updateCmd)
}
