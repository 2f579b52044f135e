package syncfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcus/expensesync/internal/model"
)

func ptr(s string) *string { return &s }

func makeEvent(id, expenseID string, amount, updatedAt int64, eventType model.EventType) model.Event {
	return model.Event{
		EventID:   id,
		Timestamp: updatedAt,
		EventType: eventType,
		ExpenseID: expenseID,
		Payload: model.Expense{
			ExpenseID:   expenseID,
			Description: ptr("Coffee"),
			Amount:      amount,
			Category:    ptr("Food"),
			Date:        ptr("2026-01-20T10:00:00Z"),
			UpdatedAt:   updatedAt,
			Deleted:     eventType == model.EventDeleted,
		},
	}
}

func TestRead_MissingFileIsEmpty(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "sync.json"), false)

	events, err := m.Read()
	if err != nil {
		t.Fatalf("read missing file: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestRead_MalformedJSONIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatalf("write malformed file: %v", err)
	}
	m := New(path, false)

	events, err := m.Read()
	if err != nil {
		t.Fatalf("expected malformed JSON to be tolerated, got error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events from a malformed file, got %d", len(events))
	}
}

func TestRead_MalformedEventEntryIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	data := []byte(`{"snapshot": null, "events": [{"eventId": "ev-1", "timestamp": "not-a-number"}]}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write file with malformed entry: %v", err)
	}
	m := New(path, false)

	events, err := m.Read()
	if err != nil {
		t.Fatalf("expected malformed entry to be tolerated, got error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events when an entry fails to parse, got %d", len(events))
	}
}

func TestAppendAndRead_SortsByTimestampThenID(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "sync.json"), false)

	// Deliberately out of order: later timestamp appended first.
	err := m.Append([]model.Event{
		makeEvent("b-event", "A", 7500, 2000, model.EventUpdated),
	})
	if err != nil {
		t.Fatalf("append 1: %v", err)
	}
	err = m.Append([]model.Event{
		makeEvent("a-event", "A", 5000, 1000, model.EventCreated),
	})
	if err != nil {
		t.Fatalf("append 2: %v", err)
	}

	events, err := m.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventID != "a-event" || events[1].EventID != "b-event" {
		t.Fatalf("expected ascending timestamp order, got %v, %v", events[0].EventID, events[1].EventID)
	}
}

func TestAppend_PreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	raw := `{
  "snapshot": null,
  "events": [
    {"eventId": "ev-1", "timestamp": 1000, "eventType": "CREATED", "expenseId": "A",
     "payload": {"id": "A", "amount": 100, "updatedAt": 1000},
     "futureField": "keep-me"}
  ],
  "futureTopLevel": 42
}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	m := New(path, false)
	if err := m.Append([]model.Event{makeEvent("ev-2", "B", 200, 2000, model.EventCreated)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse written doc: %v", err)
	}
	if string(doc["futureTopLevel"]) != "42" {
		t.Fatalf("expected top-level unknown field preserved, got %q", doc["futureTopLevel"])
	}

	var events []map[string]json.RawMessage
	if err := json.Unmarshal(doc["events"], &events); err != nil {
		t.Fatalf("parse events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if string(events[0]["futureField"]) != `"keep-me"` {
		t.Fatalf("expected unknown per-event field preserved, got %q", events[0]["futureField"])
	}
}

func TestChecksumAndHasChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.json")
	m := New(path, false)

	changed, err := m.HasChanged()
	if err != nil {
		t.Fatalf("has changed (no cache): %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true when no checksum has been cached yet")
	}

	if err := m.CacheChecksum(); err != nil {
		t.Fatalf("cache checksum: %v", err)
	}

	changed, err = m.HasChanged()
	if err != nil {
		t.Fatalf("has changed (cached, no write): %v", err)
	}
	if changed {
		t.Fatal("expected changed=false when file hasn't changed since caching")
	}

	if err := m.Append([]model.Event{makeEvent("ev-1", "A", 100, 1000, model.EventCreated)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	changed, err = m.HasChanged()
	if err != nil {
		t.Fatalf("has changed (after append): %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true after appending new events")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "sync.json"), true)
	if filepath.Ext(m.Path()) != ".gz" {
		t.Fatalf("expected .gz suffix, got %s", m.Path())
	}

	if err := m.Append([]model.Event{makeEvent("ev-1", "A", 100, 1000, model.EventCreated)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := m.Read()
	if err != nil {
		t.Fatalf("read gzip sync file: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "ev-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
