package store

import (
	"fmt"
	"os"
	"time"
)

const (
	lockAcquireTimeout = 2 * time.Second
	lockInitialBackoff = 5 * time.Millisecond
	lockMaxBackoff     = 50 * time.Millisecond
)

// FileLock guards the shared sync file against concurrent writers on the
// same host using an OS advisory lock (flock on Unix, LockFileEx on
// Windows). This is a best-effort, same-host-only mitigation for the
// concurrent-writer open question in spec.md §9; it does nothing for two
// genuinely separate hosts racing to replace the same cloud-synced file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns a lock guarding the file at lockPath (a sidecar
// path next to the sync file, not the sync file itself, so readers never
// need to take the lock just to read).
func NewFileLock(lockPath string) *FileLock {
	return &FileLock{path: lockPath}
}

// Acquire blocks (with exponential backoff, up to lockAcquireTimeout)
// until the lock is obtained or the timeout elapses.
func (l *FileLock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.file = f

	deadline := time.Now().Add(lockAcquireTimeout)
	backoff := lockInitialBackoff
	for {
		if err := l.tryLock(); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			l.file.Close()
			l.file = nil
			return fmt.Errorf("sync file lock timeout after %v", lockAcquireTimeout)
		}
		time.Sleep(backoff)
		if backoff < lockMaxBackoff {
			backoff *= 2
			if backoff > lockMaxBackoff {
				backoff = lockMaxBackoff
			}
		}
	}
}

// Release releases the lock. Safe to call even if Acquire failed.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	l.unlock()
	err := l.file.Close()
	l.file = nil
	return err
}
