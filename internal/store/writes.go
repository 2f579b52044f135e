package store

import (
	"database/sql"
	"fmt"

	"github.com/marcus/expensesync/internal/model"
)

// WriteEvent appends event and upserts its payload into the projection
// store within a single transaction, as spec.md §4.5 requires for
// create/update: "event append and projection change must be in the
// same transaction — never one without the other." Used by the Command
// Service (C5) for CREATED and UPDATED events.
func (s *Store) WriteEvent(event model.Event) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := appendEventTx(tx, event); err != nil {
			return err
		}
		_, _, err := projectFromEventTx(tx, event.Payload)
		if err != nil {
			return fmt.Errorf("project %s: %w", event.ExpenseID, err)
		}
		return nil
	})
}

// WriteDeleteEvent appends a DELETED event and tombstones the
// projection row within a single transaction (spec.md §4.5 delete path).
func (s *Store) WriteDeleteEvent(event model.Event) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := appendEventTx(tx, event); err != nil {
			return err
		}
		_, _, err := markAsDeletedTx(tx, event.ExpenseID, event.Payload.UpdatedAt)
		if err != nil {
			return fmt.Errorf("mark deleted %s: %w", event.ExpenseID, err)
		}
		return nil
	})
}
