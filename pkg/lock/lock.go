// Package lock provides advisory cross-process file locks keyed on an
// installation slug. Install and uninstall of the same slug are
// mutually exclusive; contention blocks up to a configurable timeout.
package lock

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/util"
)

// ErrLockBusy reports that another process holds the lock and the
// timeout elapsed.
var ErrLockBusy = errors.New("installation lock is busy")

const acquirePollInterval = 100 * time.Millisecond

// InstallLock is a held advisory lock for one slug.
type InstallLock struct {
	path string
	file *os.File
}

// Acquire takes the advisory lock for a slug, blocking up to timeout.
// The lock file is a zero-byte file under <locksDir>/install/.
func Acquire(locksDir, slug string, timeout time.Duration) (*InstallLock, error) {
	dir := filepath.Join(locksDir, "install")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create lock directory %s", dir)
	}

	path := filepath.Join(dir, slug+".lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open lock file %s", path)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := tryLock(file)
		if err == nil {
			util.LogVerbose("Acquired install lock for %s", slug)
			return &InstallLock{path: path, file: file}, nil
		}
		if !isContention(err) {
			file.Close()
			return nil, errors.Wrapf(err, "failed to lock %s", path)
		}
		if time.Now().After(deadline) {
			file.Close()
			return nil, errors.Wrapf(ErrLockBusy,
				"another kopi process is working on %s (waited %s)", slug, timeout)
		}
		time.Sleep(acquirePollInterval)
	}
}

// Release unlocks and closes the lock file.
func (l *InstallLock) Release() error {
	if l.file == nil {
		return nil
	}
	err := unlock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return errors.Wrapf(err, "failed to unlock %s", l.path)
	}
	return closeErr
}

// Path returns the lock file path.
func (l *InstallLock) Path() string {
	return l.path
}
