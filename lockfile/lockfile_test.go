//go:build linux || darwin

package lockfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "inventory-sheets.lock")

	first := Lockfile{Path: path}
	release, err := first.Lock(context.Background())
	require.NoError(t, err)

	second := Lockfile{Path: path, Wait: 50 * time.Millisecond, Poll: 10 * time.Millisecond}

	_, err = second.Lock(context.Background())
	assert.True(t, errors.Is(err, ErrBusy), "expected ErrBusy, got %v", err)

	release()

	release, err = second.Lock(context.Background())
	require.NoError(t, err)
	release()
}

func TestLockWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory-sheets.lock")

	release, err := Lockfile{Path: path}.Lock(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	next, err := Lockfile{Path: path, Wait: 5 * time.Second, Poll: 10 * time.Millisecond}.Lock(context.Background())
	require.NoError(t, err)
	next()
}

func TestLockWithCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory-sheets.lock")

	release, err := Lockfile{Path: path}.Lock(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = Lockfile{Path: path, Wait: time.Minute, Poll: 5 * time.Millisecond}.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
