// Package lock provides the cross-process lock that keeps catalog ingestion
// single-flight.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/reelscout/backend/internal/domain"
)

// FileLock is an advisory lock on a file shared by every process that ingests
// into the same catalog. It also excludes goroutines sharing one FileLock, which
// the file lock alone does not.
type FileLock struct {
	path string
	lock *flock.Flock
	held atomic.Bool
}

var _ domain.IngestLock = (*FileLock)(nil)

// NewFileLock prepares a lock at path, creating its directory.
func NewFileLock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	return &FileLock{path: path, lock: flock.New(path)}, nil
}

// TryLock takes the lock without blocking; false means another holder has it.
func (l *FileLock) TryLock() (bool, error) {
	if !l.held.CompareAndSwap(false, true) {
		return false, nil
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		l.held.Store(false)
		return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		l.held.Store(false)
	}
	return ok, nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	l.held.Store(false)
	return nil
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}
