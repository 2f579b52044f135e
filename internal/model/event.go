package model

// EventType enumerates the three mutation kinds an expense can undergo.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// Event is an immutable record of one mutation of one expense. Once
// appended, (EventID, EventType, ExpenseID, Timestamp, Payload) never
// mutates; Committed is a transient, local-only marker.
type Event struct {
	EventID   string
	Timestamp int64
	EventType EventType
	ExpenseID string
	Payload   Expense

	// DeviceID is carried for observability only (spec.md §9); the
	// Committed flip is keyed purely on EventID membership in the local
	// event store, never on DeviceID.
	DeviceID string

	// Committed is true once this device has observed the event on the
	// shared sync medium. Local events start false; remote events that
	// happen to originate from this device (re-read back from the sync
	// file) flip their local row to true when reprocessed.
	Committed bool
}

// EventEntry is the wire representation of one Event inside the sync
// file's "events" array (spec.md §6). It intentionally omits Committed,
// which has no cross-replica meaning.
type EventEntry struct {
	EventID   string    `json:"eventId"`
	Timestamp int64     `json:"timestamp"`
	EventType EventType `json:"eventType"`
	ExpenseID string    `json:"expenseId"`
	Payload   Expense   `json:"payload"`
}

// ToEntry converts an Event to its wire form.
func (e Event) ToEntry() EventEntry {
	return EventEntry{
		EventID:   e.EventID,
		Timestamp: e.Timestamp,
		EventType: e.EventType,
		ExpenseID: e.ExpenseID,
		Payload:   e.Payload,
	}
}

// FromEntry builds a local Event from a wire EventEntry. Committed and
// DeviceID are left at their zero values; the local command service does
// not use FromEntry and sets both on the Events it builds itself.
func FromEntry(entry EventEntry) Event {
	return Event{
		EventID:   entry.EventID,
		Timestamp: entry.Timestamp,
		EventType: entry.EventType,
		ExpenseID: entry.ExpenseID,
		Payload:   entry.Payload,
	}
}

// ByTimestampThenID sorts events by (Timestamp, EventID) ascending, the
// deterministic order spec.md §5 requires for batch processing. Ties on
// Timestamp break on the lexicographic ordering of the lowercase-hyphenated
// UUID text, which is order-equivalent to the 128-bit unsigned comparison
// spec.md calls for.
type ByTimestampThenID []EventEntry

func (s ByTimestampThenID) Len() int      { return len(s) }
func (s ByTimestampThenID) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s ByTimestampThenID) Less(i, j int) bool {
	if s[i].Timestamp != s[j].Timestamp {
		return s[i].Timestamp < s[j].Timestamp
	}
	return s[i].EventID < s[j].EventID
}
