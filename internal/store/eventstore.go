package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/marcus/expensesync/internal/model"
)

// Append inserts an immutable event row. Fails only on a duplicate
// EventID, which should not occur under correct ID generation.
func (s *Store) Append(event model.Event) error {
	return s.withTx(func(tx *sql.Tx) error {
		return appendEventTx(tx, event)
	})
}

func appendEventTx(tx *sql.Tx, event model.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload %s: %w", event.EventID, err)
	}
	_, err = tx.Exec(
		`INSERT INTO event_log (event_id, timestamp, event_type, expense_id, device_id, payload, committed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.Timestamp, string(event.EventType), event.ExpenseID, event.DeviceID, payload, event.Committed,
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", event.EventID, err)
	}
	return nil
}

// FindUncommitted streams events where committed=false, ordered by
// (timestamp, event_id). It is a restartable cursor, not a materialized
// list: the caller drives it with Next/Event/Err/Close (spec.md §9
// "lazy/restartable enumeration").
type UncommittedCursor struct {
	rows *sql.Rows
	cur  model.Event
	err  error
}

// FindUncommitted opens a cursor over every local event this replica has
// not yet observed on the shared sync medium.
func (s *Store) FindUncommitted() (*UncommittedCursor, error) {
	rows, err := s.conn.Query(
		`SELECT event_id, timestamp, event_type, expense_id, device_id, payload, committed
		 FROM event_log WHERE committed = 0 ORDER BY timestamp ASC, event_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query uncommitted events: %w", err)
	}
	return &UncommittedCursor{rows: rows}, nil
}

// Next advances the cursor. It returns false at end of stream or on
// error; callers must check Err after Next returns false.
func (c *UncommittedCursor) Next() bool {
	if !c.rows.Next() {
		return false
	}
	var payload []byte
	var eventType string
	var ev model.Event
	if c.err = c.rows.Scan(&ev.EventID, &ev.Timestamp, &eventType, &ev.ExpenseID, &ev.DeviceID, &payload, &ev.Committed); c.err != nil {
		return false
	}
	ev.EventType = model.EventType(eventType)
	if c.err = json.Unmarshal(payload, &ev.Payload); c.err != nil {
		return false
	}
	c.cur = ev
	return true
}

// Event returns the event most recently fetched by Next.
func (c *UncommittedCursor) Event() model.Event { return c.cur }

// Err returns the first error encountered while iterating, if any.
func (c *UncommittedCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the cursor's underlying database resources.
func (c *UncommittedCursor) Close() error { return c.rows.Close() }

// CollectUncommitted drains FindUncommitted into a slice. Provided as a
// convenience for callers (C9) that need the whole batch before the next
// step; it is not how C2's contract is meant to be consumed internally.
func (s *Store) CollectUncommitted() ([]model.Event, error) {
	cur, err := s.FindUncommitted()
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var events []model.Event
	for cur.Next() {
		events = append(events, cur.Event())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate uncommitted events: %w", err)
	}
	return events, nil
}

// MarkCommitted sets committed=true for the listed event IDs. Idempotent:
// marking an already-committed or nonexistent ID is a no-op.
func (s *Store) MarkCommitted(eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	return s.withTx(func(tx *sql.Tx) error {
		return markCommittedTx(tx, eventIDs)
	})
}

func markCommittedTx(tx *sql.Tx, eventIDs []string) error {
	stmt, err := tx.Prepare(`UPDATE event_log SET committed = 1 WHERE event_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare mark-committed: %w", err)
	}
	defer stmt.Close()

	for _, id := range eventIDs {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("mark committed %s: %w", id, err)
		}
	}
	return nil
}
