// Package command implements the Command Service (C5) and Query Service
// (C6): the local write path (create/update/delete, each appending an
// event and upserting the projection inside a single transaction) and
// the local read path (list/find over non-deleted projections).
package command

import (
	"errors"
	"fmt"

	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/store"
)

// ErrNotFound is a typed sentinel a caller (cmd/) can match with
// errors.Is, the way the teacher distinguishes sql.ErrNoRows from a hard
// store failure. It is never returned by Update/Delete themselves --
// spec.md §7 models "not found" as a non-error nil/false return at this
// layer -- callers that want a uniform error for a missing id wrap it
// themselves, e.g. fmt.Errorf("expense %s: %w", id, command.ErrNotFound).
var ErrNotFound = errors.New("expense not found")

// Service is the Command Service (C5). One method per mutation kind; all
// three append an event and update the projection atomically.
type Service struct {
	store    *store.Store
	clock    model.Clock
	deviceID string
}

// New returns a Command Service writing to st, stamping events with
// clock and deviceID (the latter kept only for observability — spec.md
// §9 — and never used to decide the committed flip).
func New(st *store.Store, clock model.Clock, deviceID string) *Service {
	return &Service{store: st, clock: clock, deviceID: deviceID}
}

// Create mints a fresh expense ID, appends a CREATED event, and
// upserts the projection, all within the store's event-append +
// projection-write atomicity guarantee (spec.md §4.5).
func (s *Service) Create(description *string, amount int64, category, date *string) (model.Expense, error) {
	now := s.clock.NowMillis()
	payload := model.Expense{
		ExpenseID:   model.NewID(),
		Description: description,
		Amount:      amount,
		Category:    category,
		Date:        date,
		UpdatedAt:   now,
		Deleted:     false,
	}

	event := model.Event{
		EventID:   model.NewID(),
		Timestamp: now,
		EventType: model.EventCreated,
		ExpenseID: payload.ExpenseID,
		Payload:   payload,
		DeviceID:  s.deviceID,
		Committed: false,
	}

	if err := s.store.WriteEvent(event); err != nil {
		return model.Expense{}, fmt.Errorf("create: %w", err)
	}
	return payload, nil
}

// ExpenseUpdate carries the optional fields a caller wants to change. A
// nil field leaves the corresponding value untouched.
type ExpenseUpdate struct {
	Description *string
	Amount      *int64
	Category    *string
	Date        *string
}

// Update merges supplied fields over the existing projection row and
// appends an UPDATED event. Returns (nil, nil) if the expense does not
// exist — spec.md §4.5 treats this as a non-error no-op, no event is
// emitted.
func (s *Service) Update(id string, upd ExpenseUpdate) (*model.Expense, error) {
	existing, err := s.store.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("update: find %s: %w", id, err)
	}
	if existing == nil {
		return nil, nil
	}

	next := existing.Clone()
	if upd.Description != nil {
		next.Description = upd.Description
	}
	if upd.Amount != nil {
		next.Amount = *upd.Amount
	}
	if upd.Category != nil {
		next.Category = upd.Category
	}
	if upd.Date != nil {
		next.Date = upd.Date
	}
	next.UpdatedAt = s.clock.NowMillis()
	next.Deleted = false

	event := model.Event{
		EventID:   model.NewID(),
		Timestamp: next.UpdatedAt,
		EventType: model.EventUpdated,
		ExpenseID: id,
		Payload:   next,
		DeviceID:  s.deviceID,
		Committed: false,
	}

	if err := s.store.WriteEvent(event); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return &next, nil
}

// Delete tombstones the expense and appends a DELETED event carrying the
// pre-delete snapshot with Deleted=true. Returns false if the expense
// does not exist.
func (s *Service) Delete(id string) (bool, error) {
	existing, err := s.store.FindByID(id)
	if err != nil {
		return false, fmt.Errorf("delete: find %s: %w", id, err)
	}
	if existing == nil {
		return false, nil
	}

	now := s.clock.NowMillis()
	payload := existing.Clone()
	payload.Deleted = true
	payload.UpdatedAt = now

	event := model.Event{
		EventID:   model.NewID(),
		Timestamp: now,
		EventType: model.EventDeleted,
		ExpenseID: id,
		Payload:   payload,
		DeviceID:  s.deviceID,
		Committed: false,
	}

	if err := s.store.WriteDeleteEvent(event); err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	return true, nil
}
