package command

import (
	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/store"
)

// QueryService is the Query Service (C6): read-only access to the
// projection store. It never exposes events, only the derived state.
type QueryService struct {
	store *store.Store
}

// NewQueryService returns a Query Service reading from st.
func NewQueryService(st *store.Store) *QueryService {
	return &QueryService{store: st}
}

// ListActive returns every non-deleted expense.
func (q *QueryService) ListActive() ([]model.Expense, error) {
	return q.store.ListActive()
}

// FindActive returns the expense for id, or nil if absent or tombstoned.
func (q *QueryService) FindActive(id string) (*model.Expense, error) {
	e, err := q.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.Deleted {
		return nil, nil
	}
	return e, nil
}
