package store

import (
	"database/sql"
	"fmt"

	"github.com/marcus/expensesync/internal/model"
)

// projectFromEventTx is the monotonic upsert at the heart of the sync
// core (spec.md §4.1): insert if absent, or replace iff the incoming
// payload's UpdatedAt is strictly greater than the stored one. Equal
// timestamps are a no-op. Returns applied=true if the row was inserted
// or replaced, and, when an existing row was overwritten (not a fresh
// insert), the row's prior content -- used only to surface conflict
// observability one layer up (SPEC_FULL.md "Conflict observability");
// it plays no part in the monotonicity rule itself.
func projectFromEventTx(tx *sql.Tx, payload model.Expense) (applied bool, previous *model.Expense, err error) {
	existing, err := findByIDTx(tx, payload.ExpenseID)
	if err != nil {
		return false, nil, err
	}

	if existing == nil {
		if _, err := tx.Exec(
			`INSERT INTO projection (expense_id, description, amount, category, date, updated_at, deleted)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			payload.ExpenseID, payload.Description, payload.Amount, payload.Category, payload.Date,
			payload.UpdatedAt, payload.Deleted,
		); err != nil {
			return false, nil, fmt.Errorf("insert projection %s: %w", payload.ExpenseID, err)
		}
		return true, nil, nil
	}

	if payload.UpdatedAt <= existing.UpdatedAt {
		return false, nil, nil
	}

	if _, err := tx.Exec(
		`UPDATE projection SET description = ?, amount = ?, category = ?, date = ?, updated_at = ?, deleted = ?
		 WHERE expense_id = ? AND updated_at < ?`,
		payload.Description, payload.Amount, payload.Category, payload.Date, payload.UpdatedAt, payload.Deleted,
		payload.ExpenseID, payload.UpdatedAt,
	); err != nil {
		return false, nil, fmt.Errorf("update projection %s: %w", payload.ExpenseID, err)
	}
	return true, existing, nil
}

// ProjectFromEvent runs the monotonic upsert in its own transaction. Most
// callers go through ProjectOnce (C4) instead, which composes this with
// the processed-registry mark and commit flip in a single transaction.
// The local write path (C5) does not use it either: WriteEvent runs
// projectFromEventTx inside the same transaction as the event append.
// Unlike ProjectOnce, it does not return the overwritten row.
func (s *Store) ProjectFromEvent(payload model.Expense) (bool, error) {
	var applied bool
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		applied, _, err = projectFromEventTx(tx, payload)
		return err
	})
	return applied, err
}

// markAsDeletedTx tombstones a row iff the stored UpdatedAt is strictly
// less than updatedAt. Semantically redundant with projectFromEventTx
// carrying Deleted=true (spec.md §9); kept as a thin wrapper so there is
// still exactly one code path enforcing monotonicity.
func markAsDeletedTx(tx *sql.Tx, expenseID string, updatedAt int64) (applied bool, previous *model.Expense, err error) {
	existing, err := findByIDTx(tx, expenseID)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		return false, nil, nil
	}

	tombstone := existing.Clone()
	tombstone.Deleted = true
	tombstone.UpdatedAt = updatedAt
	return projectFromEventTx(tx, tombstone)
}

// MarkAsDeleted tombstones a row in its own transaction.
func (s *Store) MarkAsDeleted(expenseID string, updatedAt int64) (bool, error) {
	var applied bool
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		applied, _, err = markAsDeletedTx(tx, expenseID, updatedAt)
		return err
	})
	return applied, err
}

// FindByID returns the projection row for expenseID, or nil if absent.
// Callers that want only active expenses must check Deleted themselves
// or use the Query Service's FindActive.
func (s *Store) FindByID(expenseID string) (*model.Expense, error) {
	return findByIDTx(s.conn, expenseID)
}

// rowScanner is satisfied by both *sql.DB and *sql.Tx.
type rowScanner interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func findByIDTx(q rowScanner, expenseID string) (*model.Expense, error) {
	var e model.Expense
	err := q.QueryRow(
		`SELECT expense_id, description, amount, category, date, updated_at, deleted FROM projection WHERE expense_id = ?`,
		expenseID,
	).Scan(&e.ExpenseID, &e.Description, &e.Amount, &e.Category, &e.Date, &e.UpdatedAt, &e.Deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find projection %s: %w", expenseID, err)
	}
	return &e, nil
}

// ListActive returns every non-deleted projection row.
func (s *Store) ListActive() ([]model.Expense, error) {
	rows, err := s.conn.Query(
		`SELECT expense_id, description, amount, category, date, updated_at, deleted
		 FROM projection WHERE deleted = 0 ORDER BY expense_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active projections: %w", err)
	}
	defer rows.Close()

	var out []model.Expense
	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ExpenseID, &e.Description, &e.Amount, &e.Category, &e.Date, &e.UpdatedAt, &e.Deleted); err != nil {
			return nil, fmt.Errorf("scan projection row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
