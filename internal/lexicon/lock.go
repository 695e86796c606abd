package lexicon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
)

// ImportLock serializes imports into one database across processes
// (a CLI import racing a watching server, for example).
type ImportLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewImportLock returns the lock guarding the database at dbPath.
// The lock file is <dbPath>.lock.
func NewImportLock(dbPath string) *ImportLock {
	path := dbPath + ".lock"
	return &ImportLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to take the lock once. A held lock is reported as a
// retryable ErrCodeImportLocked error.
func (l *ImportLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return lexerrors.New(lexerrors.ErrCodeImportLocked, "another import is in progress", nil).
			WithDetail("lock", l.path)
	}
	l.locked = true
	return nil
}

// Acquire takes the lock, backing off while another process holds it.
func (l *ImportLock) Acquire(ctx context.Context) error {
	return lexerrors.Retry(ctx, lexerrors.DefaultRetryConfig(), l.TryLock)
}

// Unlock releases the lock. Safe to call when not held.
func (l *ImportLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *ImportLock) Path() string {
	return l.path
}

// IsLocked reports whether this process holds the lock.
func (l *ImportLock) IsLocked() bool {
	return l.locked
}
