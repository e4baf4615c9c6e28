package cmd

import (
	"os"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/download"
	"github.com/kopi-vm/kopi/pkg/install"
	"github.com/kopi-vm/kopi/pkg/lock"
	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/resolver"
	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/uninstall"
	verpkg "github.com/kopi-vm/kopi/pkg/version"
)

// Exit codes surfaced by the CLI layer.
const (
	exitSuccess       = 0
	exitGenericError  = 1
	exitInvalidArg    = 2
	exitNetworkError  = 3
	exitPermission    = 4
	exitNotFound      = 5
	exitAlreadyExists = 6
	exitLockBusy      = 7
)

// ExitCode maps an error to the conventional process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}

	var noVersion *resolver.NoVersionError
	var ambiguous *uninstall.AmbiguousError
	var invalidRequest *verpkg.InvalidFormatError

	switch {
	case errors.As(err, &invalidRequest):
		return exitInvalidArg
	case errors.Is(err, lock.ErrLockBusy):
		return exitLockBusy
	case errors.Is(err, storage.ErrAlreadyExists):
		return exitAlreadyExists
	case errors.Is(err, uninstall.ErrNotInstalled),
		errors.As(err, &noVersion),
		errors.Is(err, install.ErrNoMatchingPackage):
		return exitNotFound
	case errors.As(err, &ambiguous):
		return exitInvalidArg
	case errors.Is(err, download.ErrChecksumMismatch),
		errors.Is(err, download.ErrUntrustedDomain),
		errors.Is(err, metadata.ErrAllSourcesFailed):
		return exitNetworkError
	case errors.Is(err, os.ErrPermission):
		return exitPermission
	default:
		return exitGenericError
	}
}
