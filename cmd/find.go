package cmd

import (
	"fmt"

	"github.com/marcus/expensesync/internal/command"
	"github.com/marcus/expensesync/internal/output"
	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find <id>",
	Short: "Find a single active expense by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer st.Close()

		qry := command.NewQueryService(st)
		expense, err := qry.FindActive(args[0])
		if err != nil {
			output.Error("find expense: %v", err)
			return err
		}
		if expense == nil {
			err := fmt.Errorf("expense %s: %w", args[0], command.ErrNotFound)
			output.Error("%v", err)
			return err
		}

		if jsonOutputFlag {
			return output.JSON(expense)
		}
		output.Info("%s", output.ExpenseOneLiner(*expense))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
}
