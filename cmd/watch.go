package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/expensesync/internal/orchestrator"
	"github.com/marcus/expensesync/internal/output"
	"github.com/marcus/expensesync/internal/syncconfig"
	"github.com/spf13/cobra"
)

// watchCmd runs FullSync on a ticker until interrupted, the non-TUI
// analog of the teacher's periodic sync goroutine in cmd/monitor.go
// (same ticker/ctx.Done() shape, minus the bubbletea program it fed —
// this module has no interactive terminal surface; SPEC_FULL.md
// "Dropped teacher dependencies"). It is what finally gives
// syncconfig's AutoSyncEnabled/AutoSyncInterval settings a caller.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run sync on a timer until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !syncconfig.GetAutoSyncEnabled() {
			output.Warning("auto-sync is disabled in config; watching anyway since it was requested explicitly")
		}

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

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = syncconfig.GetAutoSyncInterval()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		status, err := orch.Status()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Info("watching %s every %s (ctrl-c to stop)", status.SyncFilePath, interval)
		runWatchSync(orch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				output.Info("stopped.")
				return nil
			case <-ticker.C:
				runWatchSync(orch)
			}
		}
	},
}

// runWatchSync runs one FullSync cycle, logging rather than returning
// on failure: the ticker loop keeps going and the next cycle retries,
// relying on FullSync's idempotency (spec.md §5 "a cancellation of
// fullSync() between steps is safe").
func runWatchSync(orch *orchestrator.Orchestrator) {
	result, err := orch.FullSync()
	if err != nil {
		output.Error("sync: %v", err)
		return
	}
	if result.Pulled == 0 && result.Pushed == 0 {
		return
	}
	output.Success("pulled %d event(s) (%d applied, %d skipped), pushed %d event(s).",
		result.Pulled, result.RemoteResult.Applied, result.RemoteResult.Skipped, result.Pushed)
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "sync interval (default: config auto-sync interval)")
	rootCmd.AddCommand(watchCmd)
}
