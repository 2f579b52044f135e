// Package remotesync implements the Remote Event Processor (C8): applying
// a batch of events read from the shared sync file to the local store,
// one event at a time, so that one malformed or rejected event never
// aborts the rest of the batch (spec.md §4.8, grounded on the teacher's
// ApplyRemoteEvents loop).
package remotesync

import (
	"log/slog"

	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/store"
)

// Processor is the Remote Event Processor (C8).
type Processor struct {
	store *store.Store
	log   *slog.Logger
}

// New returns a Remote Event Processor applying events to st. A nil
// logger falls back to slog.Default().
func New(st *store.Store, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{store: st, log: log}
}

// Failure records one event that could not be applied, and why.
type Failure struct {
	EventID string
	Err     error
}

// Result summarizes one ProcessBatch call.
type Result struct {
	// Applied counts events ProjectOnce reported as true: it has not
	// previously been processed by this replica and its transaction
	// committed (spec.md §4.4 step 3). This includes events whose
	// updatedAt turned out to be monotonically stale against the
	// current projection row -- ProjectOnce still marks them processed
	// and commits, so they still count as Applied, matching spec.md §8
	// S6's "first pass applied=N" regardless of whether any of the N
	// events actually changed a visible row.
	Applied int
	// Skipped counts events ProjectOnce reported as false: this
	// eventId was already in the processed-event registry before this
	// call, so no transaction ran at all.
	Skipped int
	Failed  []Failure
	// Conflicts records every row this batch overwrote, for observability
	// only (SPEC_FULL.md "Conflict observability"); convergence never
	// reads this back.
	Conflicts []store.Conflict
}

// ProcessBatch applies entries in order, via the store's idempotent,
// per-event transaction (C4 ProjectOnce). A failure on one entry is
// recorded and processing continues with the next — mirroring the
// teacher's per-event try/continue loop, so one bad remote event
// never blocks the rest of the batch from converging.
func (p *Processor) ProcessBatch(entries []model.EventEntry) Result {
	var result Result
	for _, entry := range entries {
		event := model.FromEntry(entry)
		applied, conflict, err := p.store.ProjectOnce(event)
		if err != nil {
			p.log.Warn("apply remote event", "eventId", event.EventID, "err", err)
			result.Failed = append(result.Failed, Failure{EventID: event.EventID, Err: err})
			continue
		}
		if applied {
			result.Applied++
			if conflict != nil {
				result.Conflicts = append(result.Conflicts, *conflict)
			}
		} else {
			result.Skipped++
		}
	}
	return result
}
