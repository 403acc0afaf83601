//go:build !unix

package storage

import (
	"errors"
	"io/fs"
	"os"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
)

// Without flock the lock is a sentinel file created exclusively. A crashed
// writer leaves it behind and it has to be removed by hand.
func acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil, alreadyRunning(path)
	}
	if err != nil {
		return nil, wrapIO(err, "creating %s", path)
	}
	writePID(f)
	return &Lock{path: path, f: f}, nil
}

func release(l *Lock) error {
	_ = l.f.Close()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(apperr.CodeStorageIO, err, "removing %s", l.path)
	}
	return nil
}
