package tasks

import (
	"fmt"

	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/gofrs/flock"
)

// RunLock guards a database against concurrent sync processes.
type RunLock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for a database path.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireLock takes the sync lock for dbPath without waiting. In-memory databases are never locked.
func AcquireLock(dbPath string) (*RunLock, error) {
	if dbPath == "" || dbPath == shared.MemoryDatabase {
		return &RunLock{}, nil
	}

	fl := flock.New(LockPath(dbPath))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", shared.ErrSyncLocked, fl.Path())
	}
	return &RunLock{fl: fl}, nil
}

// Release unlocks. It is safe to call on a nil or no-op lock.
func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
