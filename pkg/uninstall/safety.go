package uninstall

import (
	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/storage"
)

// CheckNotInUse verifies an installation is safe to remove: not the
// active global default and not pinned by a reachable project version
// file.
//
// The check currently always passes; the contract is that callers
// invoke it before any removal and honor its error, so real detection
// (running-process inspection, project scanning) can land here without
// touching the removal flow.
func CheckNotInUse(cfg *config.KopiConfig, jdk *storage.InstalledJdk) error {
	_ = cfg
	_ = jdk
	return nil
}
