package store

import (
	"database/sql"
	"fmt"

	"github.com/marcus/expensesync/internal/model"
)

// Conflict records a projection row that was overwritten by a newer
// event during sync-in. It is pure observability (SPEC_FULL.md
// "Conflict observability", grounded on the teacher's
// tdsync.ApplyResult.Conflicts/ConflictRecord): nothing reads it back to
// decide anything, so its absence or presence never changes convergence
// (spec.md §8). Under this spec's wall-clock-only LWW (no vector/Lamport
// clocks, §1 Non-goals), any overwrite may represent a genuine
// concurrent edit from another device, so every overwrite -- not just
// ones provably concurrent -- is reported here.
type Conflict struct {
	ExpenseID string
	EventID   string
	Previous  model.Expense
	Incoming  model.Expense
}

// ProjectOnce is the transactional heart of sync-in (spec.md §4.4): it
// applies one remote or replayed event to the projection store, marks it
// processed, and flips the local event row's committed bit — all inside
// a single transaction — and reports whether that transaction ran and
// committed, plus the prior row content if the upsert inside it
// overwrote an existing projection rather than inserting a fresh one.
// The returned bool does not mean the event changed any visible
// state -- a monotonically stale event (updatedAt <= stored) still
// runs the transaction, gets marked processed, and reports true; only
// an eventId already in the processed-event registry short-circuits to
// false (spec.md §8 S6: "first pass applied=N" counts every
// newly-processed event, not just value-changing ones).
//
// If eventID has already been processed, ProjectOnce returns false with
// no other side effect: replaying the same event, or racing against a
// previous ProjectOnce for it, converges to the same state (spec.md §8
// "Idempotency of projection").
func (s *Store) ProjectOnce(event model.Event) (bool, *Conflict, error) {
	already, err := s.Has(event.EventID)
	if err != nil {
		return false, nil, err
	}
	if already {
		return false, nil, nil
	}

	var previous *model.Expense
	err = s.withTx(func(tx *sql.Tx) error {
		var err error
		switch event.EventType {
		case model.EventCreated, model.EventUpdated, model.EventDeleted:
			// §4.4 sanctions either markAsDeleted or
			// projectFromEvent(deleted=true) for the DELETED case; the
			// latter is used uniformly here because event.Payload already
			// carries Deleted=true with the pre-delete snapshot (spec.md
			// §4.5 delete), so it inserts a tombstone even when this
			// replica never saw the matching CREATED event -- unlike
			// markAsDeletedTx, which is a no-op with no row to update.
			_, previous, err = projectFromEventTx(tx, event.Payload)
		default:
			return fmt.Errorf("project event %s: unknown event type %q", event.EventID, event.EventType)
		}
		if err != nil {
			return err
		}

		if err := markProcessedTx(tx, event.EventID); err != nil {
			return err
		}
		// Only ever affects local events originated by this replica; a
		// no-op for remote-origin rows, since they were never inserted
		// into this replica's event_log in the first place.
		return markCommittedTx(tx, []string{event.EventID})
	})
	if err != nil {
		return false, nil, err
	}

	// Recorded only after the transaction that marked it commits, never
	// on a rolled-back transaction (spec.md §5).
	s.processed.Store(event.EventID, struct{}{})

	var conflict *Conflict
	if previous != nil {
		conflict = &Conflict{
			ExpenseID: event.ExpenseID,
			EventID:   event.EventID,
			Previous:  *previous,
			Incoming:  event.Payload,
		}
	}
	return true, conflict, nil
}
