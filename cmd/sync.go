package cmd

import (
	"fmt"

	"github.com/marcus/expensesync/internal/orchestrator"
	"github.com/marcus/expensesync/internal/output"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle against the shared sync file",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("open database: %v", err)
			return err
		}
		defer st.Close()

		orch, err := newOrchestrator(st)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		statusOnly, _ := cmd.Flags().GetBool("status")
		if statusOnly {
			return runSyncStatus(orch)
		}

		result, err := orch.FullSync()
		if err != nil {
			output.Error("sync: %v", err)
			return err
		}

		if jsonOutputFlag {
			return output.JSON(result)
		}

		if result.Pulled == 0 && result.Pushed == 0 {
			output.Info("nothing to sync.")
			return nil
		}
		output.Success("pulled %d event(s) (%d applied, %d skipped), pushed %d event(s).",
			result.Pulled, result.RemoteResult.Applied, result.RemoteResult.Skipped, result.Pushed)
		if len(result.RemoteResult.Failed) > 0 {
			output.Warning("%d remote event(s) failed to apply:", len(result.RemoteResult.Failed))
			for _, f := range result.RemoteResult.Failed {
				fmt.Printf("  %s: %v\n", f.EventID, f.Err)
			}
		}
		return nil
	},
}

// runSyncStatus reports the current sync position without mutating
// anything (supplemented feature, SPEC_FULL.md "Sync status command",
// grounded on the teacher's runSyncStatus).
func runSyncStatus(orch *orchestrator.Orchestrator) error {
	status, err := orch.Status()
	if err != nil {
		output.Error("sync status: %v", err)
		return err
	}
	if jsonOutputFlag {
		return output.JSON(status)
	}
	fmt.Printf("Sync file:    %s\n", status.SyncFilePath)
	fmt.Printf("Pending push: %d event(s)\n", status.PendingLocal)
	return nil
}

func init() {
	syncCmd.Flags().Bool("status", false, "show sync status only, without syncing")
	rootCmd.AddCommand(syncCmd)
}
