// Package store implements the three local, per-replica persistence
// components of the sync core: the Projection Store (C1), the Event
// Store (C2), and the Processed-Event Registry (C3), plus the
// transactional Projection Recorder (C4) that ties them together on the
// sync-in path.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the local SQLite connection backing C1-C3 for one replica.
type Store struct {
	conn *sql.DB
	path string

	// processed mirrors C3 in memory so ProjectOnce's has-check (spec.md
	// §4.4 step 1) doesn't round-trip to SQLite on every event. Populated
	// from All() at open time; only ever added to after a commit.
	processed sync.Map
}

// Path returns the on-disk location of the store's database file.
func (s *Store) Path() string { return s.path }

// Open opens (creating if necessary) the local store at path and warms
// the in-memory processed-event accelerator from C3.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	conn, err := openConn(path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.warmAccelerator(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("warm processed-event accelerator: %w", err)
	}
	return s, nil
}

// openConn opens a SQLite connection tuned for single-writer,
// multi-reader local access.
func openConn(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer; pinning the pool to one connection
	// keeps the driver from opening extra connections that could race
	// against the WAL/SHM files.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

func (s *Store) warmAccelerator() error {
	ids, err := s.allProcessed()
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.processed.Store(id, struct{}{})
	}
	return nil
}

// Close flushes the WAL back into the main database file and closes the
// connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// withTx runs fn inside a single transaction, committing on success and
// rolling back on any error or panic.
func (s *Store) withTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
