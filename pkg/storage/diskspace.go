package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/util"
)

// ErrDiskSpace reports insufficient free space for an installation.
var ErrDiskSpace = errors.New("insufficient disk space")

// CheckDiskSpace verifies the filesystem hosting the target path (or its
// nearest existing ancestor) has at least minMB mebibytes free.
func CheckDiskSpace(path string, minMB uint64) error {
	target := nearestExisting(path)

	availableMB, err := availableMegabytes(target)
	if err != nil {
		// The probe itself failing is not a reason to block an install.
		util.LogVerbose("Disk space check failed for %s: %v", target, err)
		return nil
	}

	if availableMB < minMB {
		return errors.Wrapf(ErrDiskSpace, "required %dMB, available %dMB at %s",
			minMB, availableMB, target)
	}
	return nil
}

func nearestExisting(path string) string {
	current := path
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}
