//go:build unix

package filelock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.lock")
	first := New(path)
	second := New(path)
	second.retryInterval = 5 * time.Millisecond

	release, err := first.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, release())

	release2, err := second.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, release2())
}

func TestLockWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.lock")
	holder := New(path)
	waiter := New(path)
	waiter.retryInterval = 5 * time.Millisecond

	release, err := holder.Lock(context.Background())
	require.NoError(t, err)

	acquired := make(chan func() error, 1)
	go func() {
		r, err := waiter.Lock(context.Background())
		if err == nil {
			acquired <- r
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(30 * time.Millisecond):
	}
	require.NoError(t, release())

	select {
	case r := <-acquired:
		require.NoError(t, r())
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}
