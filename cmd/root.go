// Package cmd implements the expensesync CLI using cobra, grounded on
// the teacher's root-command structuring (persistent global flags
// registered in init, a getBaseDir-style resolver, SilenceErrors plus
// an Execute wrapper that prints the error once) with the
// analytics/session/workflow-hint surface dropped — those are
// td-specific concerns with no equivalent in this spec.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/marcus/expensesync/internal/command"
	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/orchestrator"
	"github.com/marcus/expensesync/internal/remotesync"
	"github.com/marcus/expensesync/internal/store"
	"github.com/marcus/expensesync/internal/syncconfig"
	"github.com/marcus/expensesync/internal/syncfile"
	"github.com/spf13/cobra"
)

var versionStr string

// dbPathFlag overrides the default ~/.config/expensesync/expenses.db
// location; --sync-file overrides the shared sync file path.
var (
	dbPathFlag     string
	syncFileFlag   string
	jsonOutputFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "expensesync",
	Short: "Multi-device expense tracker with serverless, conflict-free sync",
	Long: `expensesync tracks personal expenses locally and replicates them across
devices by reading and appending to a single shared JSON file (for
example on a synced cloud drive), with no server of its own.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// SetVersion sets the version string and enables --version.
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "path to the local expense database (default ~/.config/expensesync/expenses.db)")
	rootCmd.PersistentFlags().StringVar(&syncFileFlag, "sync-file", "", "path to the shared sync file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutputFlag, "json", false, "emit machine-readable JSON output")
}

// initLogFile redirects slog to a file if EXPENSESYNC_LOG_FILE is set.
// Useful for inspecting sync warnings without cluttering command output.
func initLogFile() *os.File {
	path := os.Getenv("EXPENSESYNC_LOG_FILE")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f
}

// Execute runs the root command, printing any error once to stderr.
func Execute() {
	if f := initLogFile(); f != nil {
		defer f.Close()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the local expense database at the resolved path.
func openStore() (*store.Store, error) {
	path := dbPathFlag
	if path == "" {
		dir, err := syncconfig.ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "expenses.db")
	}
	return store.Open(path)
}

// resolveSyncFilePath returns the shared sync file path, honoring
// --sync-file over the persisted config.
func resolveSyncFilePath() (string, error) {
	if syncFileFlag != "" {
		return syncFileFlag, nil
	}
	return syncconfig.GetSyncFilePath()
}

// deviceID returns this replica's persisted device identity, used only
// for observability on emitted events (spec.md §9).
func deviceID() (string, error) {
	identity, err := syncconfig.LoadDeviceIdentity()
	if err != nil {
		return "", fmt.Errorf("load device identity: %w", err)
	}
	return identity.DeviceID, nil
}

// newOrchestrator wires an Orchestrator over st using the resolved
// sync file path and compression setting.
func newOrchestrator(st *store.Store) (*orchestrator.Orchestrator, error) {
	path, err := resolveSyncFilePath()
	if err != nil {
		return nil, fmt.Errorf("resolve sync file path: %w", err)
	}
	sf := syncfile.New(path, syncconfig.GetSyncCompressed())
	proc := remotesync.New(st, slog.Default())
	return orchestrator.New(st, sf, proc, slog.Default()), nil
}

// newService wires a command.Service over st, stamping events with
// this replica's device identity and the system clock.
func newService(st *store.Store) (*command.Service, error) {
	id, err := deviceID()
	if err != nil {
		return nil, err
	}
	return command.New(st, model.SystemClock{}, id), nil
}
