//go:build unix

package storage

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
)

// The kernel drops a flock when its holder dies, so a crashed writer never
// leaves a stale lock behind.
func acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, wrapIO(err, "opening %s", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, alreadyRunning(path)
		}
		return nil, wrapIO(err, "locking %s", path)
	}
	writePID(f)
	return &Lock{path: path, f: f}, nil
}

func release(l *Lock) error {
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if err := l.f.Close(); err != nil {
		return apperr.Wrap(apperr.CodeStorageIO, err, "closing %s", l.path)
	}
	return nil
}
