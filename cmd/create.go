package cmd

import (
	"github.com/marcus/expensesync/internal/output"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Record a new expense",
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

		var description *string
		if len(args) > 0 {
			description = &args[0]
		} else if d, _ := cmd.Flags().GetString("description"); d != "" {
			description = &d
		}

		amountCents, _ := cmd.Flags().GetInt64("amount")

		var category *string
		if c, _ := cmd.Flags().GetString("category"); c != "" {
			category = &c
		}
		var date *string
		if d, _ := cmd.Flags().GetString("date"); d != "" {
			date = &d
		}

		expense, err := svc.Create(description, amountCents, category, date)
		if err != nil {
			output.Error("create expense: %v", err)
			return err
		}

		if jsonOutputFlag {
			return output.JSON(expense)
		}
		output.Success("created %s  %s", expense.ExpenseID, output.FormatAmount(expense.Amount))
		return nil
	},
}

func init() {
	createCmd.Flags().String("description", "", "expense description")
	createCmd.Flags().Int64("amount", 0, "amount in minor currency units (cents)")
	createCmd.Flags().String("category", "", "expense category")
	createCmd.Flags().String("date", "", "expense date (RFC 3339)")
	rootCmd.AddCommand(createCmd)
}
