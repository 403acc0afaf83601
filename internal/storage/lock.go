package storage

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
)

// LockFile is the name of the single-writer lock inside the data directory.
const LockFile = "ledger.lock"

// Lock is held by the one process allowed to mutate a data directory.
type Lock struct {
	path     string
	f        *os.File
	released bool
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// AcquireLock takes the writer lock on dir without blocking. A second writer
// gets an AlreadyRunning error naming the holder's pid when it is known.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, wrapIO(err, "creating %s", dir)
	}
	return acquire(filepath.Join(dir, LockFile))
}

// Release drops the lock. Calling it more than once is harmless.
func (l *Lock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	return release(l)
}

func writePID(f *os.File) {
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
}

func readPID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func alreadyRunning(path string) error {
	if pid := readPID(path); pid != "" {
		return apperr.New(apperr.CodeAlreadyRunning, "another writer (pid %s) holds %s", pid, path)
	}
	return apperr.New(apperr.CodeAlreadyRunning, "another writer holds %s", path)
}

func wrapIO(err error, format string, args ...any) error {
	return apperr.Wrap(apperr.CodeStorageIO, err, format, args...)
}
