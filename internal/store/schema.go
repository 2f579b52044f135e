package store

// SchemaVersion is the current local-store schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS projection (
    expense_id   TEXT PRIMARY KEY,
    description  TEXT,
    amount       INTEGER NOT NULL,
    category     TEXT,
    date         TEXT,
    updated_at   INTEGER NOT NULL,
    deleted      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS event_log (
    event_id     TEXT PRIMARY KEY,
    timestamp    INTEGER NOT NULL,
    event_type   TEXT NOT NULL,
    expense_id   TEXT NOT NULL,
    device_id    TEXT NOT NULL DEFAULT '',
    payload      TEXT NOT NULL,
    committed    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_event_log_committed ON event_log(committed, timestamp, event_id);
CREATE INDEX IF NOT EXISTS idx_event_log_expense ON event_log(expense_id);

CREATE TABLE IF NOT EXISTS processed_event (
    event_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS schema_info (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
