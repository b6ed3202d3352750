package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	homedir "github.com/mitchellh/go-homedir"
)

const lockFileSuffix = ".lock"

// DBLock serializes writers of the feed database across lounge processes.
type DBLock struct {
	lock *flock.Flock
	path string
}

func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve db path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{lock: flock.New(lockPath), path: lockPath}, nil
}

// Lock acquires the lock, waiting for another writer if there is one.
func (l *DBLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !locked {
		Log.Warnf("another lounge process is writing to the database, waiting")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// TryLock acquires the lock only if it is free.
func (l *DBLock) TryLock() (bool, error) {
	locked, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	return locked, nil
}

func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path; empty means ~/.config/lounge/lounge.sqlite,
// whose directory is created if missing.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		dir := filepath.Join(home, ".config", "lounge")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(dir, "lounge.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
