// Package syncfile implements the Sync File Manager (C7): reading and
// atomically appending to the shared JSON document that mediates
// replication between replicas (spec.md §4.7, §6).
package syncfile

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/store"
)

// document is the on-disk shape of the sync file (spec.md §6). Snapshot
// and each event entry are kept as raw JSON so that fields this version
// doesn't know about survive a read-modify-write untouched (forward
// compatibility).
type document struct {
	Snapshot json.RawMessage   `json:"snapshot"`
	Events   []json.RawMessage `json:"events"`
}

// Manager is the Sync File Manager (C7). It owns the path to the shared
// file, an advisory lock guarding same-host concurrent writers,
// and the cached checksum from the last cycle.
type Manager struct {
	path       string
	compressed bool
	lock       *store.FileLock
	cachedHash atomic.Pointer[string]
}

// New returns a Manager for the sync file at path. When compressed is
// true, the file is read/written gzip-framed and path gains a ".gz"
// suffix if it doesn't already have one (spec.md §4.7).
func New(path string, compressed bool) *Manager {
	if compressed && filepath.Ext(path) != ".gz" {
		path += ".gz"
	}
	return &Manager{
		path:       path,
		compressed: compressed,
		lock:       store.NewFileLock(path + ".lock"),
	}
}

// Path returns the path this manager reads and writes.
func (m *Manager) Path() string { return m.path }

// Read loads the sync file and returns its events sorted by
// (timestamp, eventId) ascending (spec.md §4.7). A missing file is
// treated as an empty event list, not an error. A malformed document
// (or a malformed individual entry within an otherwise-parseable one)
// is a SyncFileFailure (spec.md §7): logged via slog.Warn and treated
// as an empty list rather than failing the sync cycle -- the shared
// file lives on a cloud drive (§1) where a reader may observe another
// replica's write mid-flight, and §9 leaves concurrent-writer hazards
// unresolved, so a transiently corrupt document must not permanently
// wedge every later sync on this replica.
func (m *Manager) Read() ([]model.EventEntry, error) {
	data, err := m.readBytes()
	if err != nil {
		if os.IsNotExist(err) {
			return []model.EventEntry{}, nil
		}
		return nil, fmt.Errorf("read sync file: %w", err)
	}
	if len(data) == 0 {
		return []model.EventEntry{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("sync file: malformed JSON, treating as empty", "path", m.path, "err", err)
		return []model.EventEntry{}, nil
	}

	entries := make([]model.EventEntry, 0, len(doc.Events))
	for i, raw := range doc.Events {
		var entry model.EventEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			slog.Warn("sync file: malformed event entry, treating file as empty", "path", m.path, "index", i, "err", err)
			return []model.EventEntry{}, nil
		}
		entries = append(entries, entry)
	}

	sort.Stable(model.ByTimestampThenID(entries))
	return entries, nil
}

// load reads and parses the document, tolerating a missing file.
func (m *Manager) load() (document, error) {
	data, err := m.readBytes()
	if err != nil {
		if os.IsNotExist(err) {
			return document{}, nil
		}
		return document{}, fmt.Errorf("read sync file: %w", err)
	}
	if len(data) == 0 {
		return document{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("parse sync file: %w", err)
	}
	return doc, nil
}

// readBytes reads the file's bytes, transparently decompressing when the
// manager is configured for gzip.
func (m *Manager) readBytes() ([]byte, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !m.compressed {
		return io.ReadAll(f)
	}
	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

// Append reads the existing document (or starts an empty one),
// preserving existing events and unknown fields verbatim, appends
// newEvents in the order given, and writes the result back atomically
// (write-then-rename), optionally gzip-framed.
func (m *Manager) Append(newEvents []model.Event) error {
	if len(newEvents) == 0 {
		return nil
	}

	if err := m.lock.Acquire(); err != nil {
		return fmt.Errorf("acquire sync file lock: %w", err)
	}
	defer m.lock.Release()

	doc, err := m.load()
	if err != nil {
		return err
	}
	if doc.Snapshot == nil {
		doc.Snapshot = json.RawMessage("null")
	}

	for _, ev := range newEvents {
		raw, err := json.Marshal(ev.ToEntry())
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.EventID, err)
		}
		doc.Events = append(doc.Events, raw)
	}

	return m.writeAtomic(doc)
}

// writeAtomic pretty-prints doc and replaces the sync file via a
// temp-file-then-rename, so readers never observe a partially written
// file.
func (m *Manager) writeAtomic(doc document) error {
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync document: %w", err)
	}

	var payload []byte
	if m.compressed {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(pretty); err != nil {
			return fmt.Errorf("gzip sync document: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("close gzip writer: %w", err)
		}
		payload = buf.Bytes()
	} else {
		payload = pretty
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create sync file dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp sync file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp sync file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp sync file into place: %w", err)
	}
	return nil
}

// Checksum returns the SHA-256 hash of the sync file's literal on-disk
// bytes (spec.md §4.7) -- the compressed bytes when the manager is
// configured for gzip, not the decompressed document, so two replicas
// that produce byte-identical gzip output hash identically and a
// change to the on-disk file is never missed. A missing file hashes as
// if it were empty.
func (m *Manager) Checksum() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			data = nil
		} else {
			return "", fmt.Errorf("checksum sync file: %w", err)
		}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HasChanged reports whether the sync file's current checksum differs
// from the cached one. An absent cache always counts as changed.
func (m *Manager) HasChanged() (bool, error) {
	current, err := m.Checksum()
	if err != nil {
		return false, err
	}
	cached := m.cachedHash.Load()
	return cached == nil || *cached != current, nil
}

// CacheChecksum stores the sync file's current checksum for the next
// cycle's HasChanged call.
func (m *Manager) CacheChecksum() error {
	current, err := m.Checksum()
	if err != nil {
		return err
	}
	m.cachedHash.Store(&current)
	return nil
}
