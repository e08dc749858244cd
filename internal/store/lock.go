package store

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another setbreak process holds the writer lock.
var ErrLocked = errors.New("database is locked by another setbreak process")

// Lock is the single-writer guard taken by commands that modify the
// database. It is an advisory flock on "<database>.lock".
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file location for a database path.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireLock takes the writer lock without blocking. ErrLocked is returned
// when another process already holds it.
func AcquireLock(dbPath string) (*Lock, error) {
	path := LockPath(dbPath)
	l := &Lock{path: path, lock: flock.New(path)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
