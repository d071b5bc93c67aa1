//go:build linux || darwin

// Package lockfile implements an advisory run lock using flock(2), so that
// overlapping scheduled runs on the same host are serialised.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

var ErrBusy = errors.New("lock held by another run")

// Lockfile is a flock based lock on a file. Wait is the maximum time to wait for
// a busy lock, zero meaning fail immediately.
type Lockfile struct {
	Path string
	Wait time.Duration
	Poll time.Duration
}

// Lock acquires an exclusive lock, writing the process ID to the lock file. The
// lock is released (and the file left in place) by the returned function.
func (l Lockfile) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0700); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	poll := l.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}

	deadline := time.Now().Add(l.Wait)

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}

		if !errors.Is(err, unix.EWOULDBLOCK) {
			f.Close()
			return nil, fmt.Errorf("error locking %v (%w)", l.Path, err)
		}

		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%w (%v)", ErrBusy, l.Path)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()

		case <-time.After(poll):
		}
	}

	if err := f.Truncate(0); err == nil {
		f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	release := func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}

	return release, nil
}
