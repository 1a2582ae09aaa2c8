// Package filelock serializes work across processes on one host through an
// advisory lock file.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultRetryInterval = 100 * time.Millisecond

// ErrUnsupported is returned on platforms without advisory file locks.
var ErrUnsupported = errors.New("file locking not supported on this platform")

// Lock is an exclusive advisory lock on a file path.
type Lock struct {
	path          string
	retryInterval time.Duration
}

// New constructs a Lock. The parent directory is created on first use.
func New(path string) *Lock {
	return &Lock{path: path, retryInterval: defaultRetryInterval}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Lock blocks until the lock is held or ctx is done. The returned function
// releases it.
func (l *Lock) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", l.path, err)
		}
		if ok {
			return func() error {
				unlockErr := unlock(f)
				return errors.Join(unlockErr, f.Close())
			}, nil
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
