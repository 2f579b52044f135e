//go:build unix

package store

import "golang.org/x/sys/unix"

// tryLock attempts a non-blocking exclusive flock.
func (l *FileLock) tryLock() error {
	return unix.Flock(int(l.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// unlock releases the exclusive flock.
func (l *FileLock) unlock() {
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
}
