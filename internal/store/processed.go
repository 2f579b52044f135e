package store

import (
	"database/sql"
	"fmt"
)

// Has reports whether eventID has already been projected. Checks the
// in-memory accelerator first, falling through to C3 on a miss so a
// process restart (which resets the accelerator) stays correct.
func (s *Store) Has(eventID string) (bool, error) {
	if _, ok := s.processed.Load(eventID); ok {
		return true, nil
	}
	return hasProcessedTx(s.conn, eventID)
}

func hasProcessedTx(q rowScanner, eventID string) (bool, error) {
	var exists int
	err := q.QueryRow(`SELECT 1 FROM processed_event WHERE event_id = ?`, eventID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", eventID, err)
	}
	return true, nil
}

// Mark records eventID as processed. Insertion is idempotent: marking an
// already-present ID is a no-op. Mark adds eventID to the in-memory
// accelerator itself, only after its own transaction commits (spec.md
// §5 "added only after the transaction ... commits").
func (s *Store) Mark(eventID string) error {
	err := s.withTx(func(tx *sql.Tx) error {
		return markProcessedTx(tx, eventID)
	})
	if err != nil {
		return err
	}
	s.processed.Store(eventID, struct{}{})
	return nil
}

func markProcessedTx(tx *sql.Tx, eventID string) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO processed_event (event_id) VALUES (?)`, eventID)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", eventID, err)
	}
	return nil
}

// All enumerates every processed event ID. Used at startup to warm the
// in-memory accelerator.
func (s *Store) All() ([]string, error) {
	return s.allProcessed()
}

func (s *Store) allProcessed() ([]string, error) {
	rows, err := s.conn.Query(`SELECT event_id FROM processed_event`)
	if err != nil {
		return nil, fmt.Errorf("list processed events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan processed event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
