package store

import (
	"path/filepath"
	"testing"

	"github.com/marcus/expensesync/internal/model"
)

func ptr(s string) *string { return &s }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeExpense(id string, amount, updatedAt int64, deleted bool) model.Expense {
	return model.Expense{
		ExpenseID:   id,
		Description: ptr("Coffee"),
		Amount:      amount,
		Category:    ptr("Food"),
		Date:        ptr("2026-01-20T10:00:00Z"),
		UpdatedAt:   updatedAt,
		Deleted:     deleted,
	}
}

func TestProjectFromEvent_InsertsNewRow(t *testing.T) {
	s := newTestStore(t)

	applied, err := s.ProjectFromEvent(makeExpense("A", 450, 1000, false))
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !applied {
		t.Fatal("expected insert to apply")
	}

	got, err := s.FindByID("A")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Amount != 450 || got.UpdatedAt != 1000 {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestProjectFromEvent_MonotonicUpdatedAt(t *testing.T) {
	s := newTestStore(t)

	mustProject(t, s, makeExpense("A", 450, 1000, false))

	applied, err := s.ProjectFromEvent(makeExpense("A", 950, 2000, false))
	if err != nil {
		t.Fatalf("project newer: %v", err)
	}
	if !applied {
		t.Fatal("newer updatedAt should apply")
	}

	applied, err = s.ProjectFromEvent(makeExpense("A", 1, 2000, false))
	if err != nil {
		t.Fatalf("project equal: %v", err)
	}
	if applied {
		t.Fatal("equal updatedAt must never overwrite")
	}

	applied, err = s.ProjectFromEvent(makeExpense("A", 1, 1500, false))
	if err != nil {
		t.Fatalf("project older: %v", err)
	}
	if applied {
		t.Fatal("older updatedAt must never overwrite")
	}

	got, _ := s.FindByID("A")
	if got.Amount != 950 || got.UpdatedAt != 2000 {
		t.Fatalf("final state wrong: %+v", got)
	}
}

func TestProjectFromEvent_OutOfOrderConverges(t *testing.T) {
	// S2: UPDATED(t=2000) observed before CREATED(t=1000).
	s := newTestStore(t)

	mustProject(t, s, makeExpense("A", 7500, 2000, false))
	mustProject(t, s, makeExpense("A", 5000, 1000, false))

	got, _ := s.FindByID("A")
	if got.Amount != 7500 || got.UpdatedAt != 2000 || got.Deleted {
		t.Fatalf("out-of-order convergence failed: %+v", got)
	}
}

func TestProjectFromEvent_Commutative(t *testing.T) {
	s1 := newTestStore(t)
	s2 := newTestStore(t)

	e1 := makeExpense("A", 1000, 1000, false)
	e2 := makeExpense("A", 2000, 2000, false)

	mustProject(t, s1, e1)
	mustProject(t, s1, e2)

	mustProject(t, s2, e2)
	mustProject(t, s2, e1)

	got1, _ := s1.FindByID("A")
	got2, _ := s2.FindByID("A")
	if got1.Amount != got2.Amount || got1.UpdatedAt != got2.UpdatedAt || got1.Deleted != got2.Deleted {
		t.Fatalf("projection not commutative: %+v vs %+v", got1, got2)
	}
}

func TestMarkAsDeleted_RejectsOlderTimestamp(t *testing.T) {
	s := newTestStore(t)
	mustProject(t, s, makeExpense("A", 1000, 3000, false))

	applied, err := s.MarkAsDeleted("A", 2000)
	if err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if applied {
		t.Fatal("older delete timestamp must be rejected")
	}

	got, _ := s.FindByID("A")
	if got.Deleted {
		t.Fatal("row should not be deleted")
	}
}

func TestMarkAsDeleted_Resurrection(t *testing.T) {
	// S5: DELETED(t=2000) then UPDATED(desc="back", t=3000, deleted=false)
	s := newTestStore(t)
	mustProject(t, s, makeExpense("A", 1000, 1000, false))

	applied, err := s.MarkAsDeleted("A", 2000)
	if err != nil || !applied {
		t.Fatalf("delete: applied=%v err=%v", applied, err)
	}

	resurrect := makeExpense("A", 500, 3000, false)
	resurrect.Description = ptr("back")
	mustProject(t, s, resurrect)

	got, _ := s.FindByID("A")
	if got.Deleted {
		t.Fatal("expected resurrection to clear deleted")
	}
	if *got.Description != "back" || got.Amount != 500 {
		t.Fatalf("unexpected resurrected row: %+v", got)
	}
}

func TestListActive_HidesTombstones(t *testing.T) {
	s := newTestStore(t)
	mustProject(t, s, makeExpense("A", 100, 1000, false))
	mustProject(t, s, makeExpense("B", 200, 1000, false))
	if _, err := s.MarkAsDeleted("B", 2000); err != nil {
		t.Fatalf("delete B: %v", err)
	}

	active, err := s.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ExpenseID != "A" {
		t.Fatalf("expected only A active, got %+v", active)
	}
}

func TestProjectOnce_IdempotentAndAtomic(t *testing.T) {
	s := newTestStore(t)

	ev := model.Event{
		EventID:   "ev-1",
		Timestamp: 1000,
		EventType: model.EventCreated,
		ExpenseID: "A",
		Payload:   makeExpense("A", 450, 1000, false),
	}

	applied, conflict, err := s.ProjectOnce(ev)
	if err != nil || !applied {
		t.Fatalf("first ProjectOnce: applied=%v err=%v", applied, err)
	}
	if conflict != nil {
		t.Fatalf("expected no conflict on a fresh insert, got %+v", conflict)
	}

	has, err := s.Has("ev-1")
	if err != nil || !has {
		t.Fatalf("expected event marked processed: has=%v err=%v", has, err)
	}

	applied, _, err = s.ProjectOnce(ev)
	if err != nil {
		t.Fatalf("second ProjectOnce: %v", err)
	}
	if applied {
		t.Fatal("replaying the same event must return false")
	}

	got, _ := s.FindByID("A")
	if got.Amount != 450 {
		t.Fatalf("replay must not change state: %+v", got)
	}
}

func TestProjectOnce_DeletedEvent(t *testing.T) {
	s := newTestStore(t)
	mustProjectOnce(t, s, model.Event{
		EventID: "ev-1", Timestamp: 1000, EventType: model.EventCreated,
		ExpenseID: "A", Payload: makeExpense("A", 1000, 1000, false),
	})

	deletePayload := makeExpense("A", 1000, 3000, true)
	applied, conflict, err := s.ProjectOnce(model.Event{
		EventID: "ev-2", Timestamp: 3000, EventType: model.EventDeleted,
		ExpenseID: "A", Payload: deletePayload,
	})
	if err != nil || !applied {
		t.Fatalf("delete event: applied=%v err=%v", applied, err)
	}
	if conflict == nil || conflict.Previous.Amount != 1000 || conflict.Previous.Deleted {
		t.Fatalf("expected conflict recording the pre-delete row, got %+v", conflict)
	}

	got, _ := s.FindByID("A")
	if !got.Deleted || got.UpdatedAt != 3000 {
		t.Fatalf("expected tombstone at t=3000: %+v", got)
	}
}

// TestProjectOnce_DeletedEventWithNoPriorRowInsertsTombstone covers a
// DELETED event arriving at a replica that never saw this expense's
// CREATED event (e.g. the file was truncated, or this replica joined
// after the fact). ProjectOnce routes DELETED through the full
// projectFromEvent upsert rather than markAsDeleted, so it still
// inserts a tombstone instead of silently discarding the event.
func TestProjectOnce_DeletedEventWithNoPriorRowInsertsTombstone(t *testing.T) {
	s := newTestStore(t)

	deletePayload := makeExpense("A", 1000, 3000, true)
	applied, conflict, err := s.ProjectOnce(model.Event{
		EventID: "ev-1", Timestamp: 3000, EventType: model.EventDeleted,
		ExpenseID: "A", Payload: deletePayload,
	})
	if err != nil || !applied {
		t.Fatalf("delete event with no prior row: applied=%v err=%v", applied, err)
	}
	if conflict != nil {
		t.Fatalf("expected no conflict on a fresh insert, got %+v", conflict)
	}

	got, err := s.FindByID("A")
	if err != nil {
		t.Fatalf("find A: %v", err)
	}
	if got == nil || !got.Deleted || got.UpdatedAt != 3000 {
		t.Fatalf("expected a tombstone row at t=3000, got %+v", got)
	}
}

func TestEventStore_AppendAndCollectUncommitted(t *testing.T) {
	s := newTestStore(t)

	for i, id := range []string{"ev-1", "ev-2"} {
		if err := s.Append(model.Event{
			EventID: id, Timestamp: int64(1000 + i), EventType: model.EventCreated,
			ExpenseID: "A", DeviceID: "device-1", Payload: makeExpense("A", 100, int64(1000+i), false),
		}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	events, err := s.CollectUncommitted()
	if err != nil {
		t.Fatalf("collect uncommitted: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 uncommitted events, got %d", len(events))
	}

	if err := s.MarkCommitted([]string{"ev-1", "ev-2"}); err != nil {
		t.Fatalf("mark committed: %v", err)
	}

	events, err = s.CollectUncommitted()
	if err != nil {
		t.Fatalf("collect after commit: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no uncommitted events after commit, got %d", len(events))
	}
}

func TestProcessedRegistry_MarkIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Mark("ev-1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := s.Mark("ev-1"); err != nil {
		t.Fatalf("mark again: %v", err)
	}

	ids, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one processed id, got %v", ids)
	}
}

func TestProcessedRegistry_AcceleratorWarmsFromAll(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "expenses.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Mark("ev-1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	s.Close()

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	// Force a cache-only check by reading directly from the accelerator
	// rather than through Has (which falls through to SQL on a miss): the
	// invariant is that warmAccelerator populated it without an explicit
	// Mark call in this process.
	_, has := reopened.processed.Load("ev-1")
	if !has {
		t.Fatalf("expected accelerator warmed from C3.All(): has=%v", has)
	}
}

func mustProject(t *testing.T, s *Store, payload model.Expense) {
	t.Helper()
	if _, err := s.ProjectFromEvent(payload); err != nil {
		t.Fatalf("project %s: %v", payload.ExpenseID, err)
	}
}

func mustProjectOnce(t *testing.T, s *Store, ev model.Event) {
	t.Helper()
	if _, _, err := s.ProjectOnce(ev); err != nil {
		t.Fatalf("project once %s: %v", ev.EventID, err)
	}
}
