// Package orchestrator implements the Sync Orchestrator (C9): the single
// entry point that runs one full sync cycle in the strict order
// spec.md §4.9 requires (check for change, pull-and-apply remote
// events, push local events, re-cache the checksum), grounded on the
// teacher's syncCmd.RunE push/pull phase ordering (cmd/sync.go).
package orchestrator

import (
	"fmt"
	"log/slog"

	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/remotesync"
	"github.com/marcus/expensesync/internal/store"
	"github.com/marcus/expensesync/internal/syncfile"
)

// Orchestrator is the Sync Orchestrator (C9).
type Orchestrator struct {
	store     *store.Store
	syncFile  *syncfile.Manager
	processor *remotesync.Processor
	log       *slog.Logger
}

// New returns a Sync Orchestrator wiring st, sf, and proc together. A
// nil logger falls back to slog.Default().
func New(st *store.Store, sf *syncfile.Manager, proc *remotesync.Processor, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{store: st, syncFile: sf, processor: proc, log: log}
}

// Result summarizes one FullSync call.
type Result struct {
	// Pulled is the number of remote entries read from the sync file
	// and handed to the Remote Event Processor. Zero when HasChanged
	// reported no change, in which case pulling is skipped entirely.
	Pulled int
	// RemoteResult is the Remote Event Processor's verdict over Pulled
	// entries. Zero value when Pulled is zero.
	RemoteResult remotesync.Result
	// Pushed is the number of local events appended to the sync file.
	Pushed int
}

// FullSync runs one sync cycle (spec.md §4.9):
//
//  1. If the sync file's checksum has changed since the last cycle,
//     read it and hand every entry to the Remote Event Processor.
//  2. Collect this replica's uncommitted local events and, if any
//     exist, append them to the sync file.
//  3. Cache the sync file's checksum for the next cycle's HasChanged
//     check.
//
// Pull always precedes push so a device never re-announces an event it
// is about to read back as someone else's (spec.md §4.9 note).
func (o *Orchestrator) FullSync() (Result, error) {
	var result Result

	changed, err := o.syncFile.HasChanged()
	if err != nil {
		return result, fmt.Errorf("check sync file: %w", err)
	}
	if changed {
		entries, err := o.syncFile.Read()
		if err != nil {
			return result, fmt.Errorf("read sync file: %w", err)
		}
		result.Pulled = len(entries)
		result.RemoteResult = o.processor.ProcessBatch(entries)
		if len(result.RemoteResult.Failed) > 0 {
			o.log.Warn("sync: some remote events failed to apply", "failed", len(result.RemoteResult.Failed))
		}
	}

	pending, err := o.collectPending()
	if err != nil {
		return result, fmt.Errorf("collect pending events: %w", err)
	}
	if len(pending) > 0 {
		if err := o.syncFile.Append(pending); err != nil {
			return result, fmt.Errorf("append to sync file: %w", err)
		}
		var ids []string
		for _, ev := range pending {
			ids = append(ids, ev.EventID)
		}
		if err := o.store.MarkCommitted(ids); err != nil {
			return result, fmt.Errorf("mark pushed events committed: %w", err)
		}
		result.Pushed = len(pending)
	}

	if err := o.syncFile.CacheChecksum(); err != nil {
		return result, fmt.Errorf("cache sync file checksum: %w", err)
	}

	return result, nil
}

func (o *Orchestrator) collectPending() ([]model.Event, error) {
	return o.store.CollectUncommitted()
}

// Status reports the current sync position for a "status only" command
// (supplemented feature, SPEC_FULL.md), without mutating anything.
type Status struct {
	PendingLocal int
	SyncFilePath string
}

// Status returns the current sync position without touching the sync
// file or the store's committed flags.
func (o *Orchestrator) Status() (Status, error) {
	pending, err := o.store.CollectUncommitted()
	if err != nil {
		return Status{}, fmt.Errorf("count pending events: %w", err)
	}
	return Status{
		PendingLocal: len(pending),
		SyncFilePath: o.syncFile.Path(),
	}, nil
}
