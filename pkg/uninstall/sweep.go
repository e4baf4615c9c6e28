package uninstall

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/util"
)

// SweepResult lists what a recovery sweep removed.
type SweepResult struct {
	RemovedPaths []string
}

// CleanupOrphans removes leftovers from interrupted operations: hidden
// ".<slug>.removing" siblings, staging directories under jdks/.tmp, and
// partial installs whose slug directory lacks bin/java. Sidecars whose
// slug directory is gone are deleted as well. Called explicitly, never
// as a side effect of install or uninstall. Per-entry failures are
// logged and skipped.
func (h *Handler) CleanupOrphans() (*SweepResult, error) {
	jdksDir := h.repo.JdksDir()
	entries, err := os.ReadDir(jdksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &SweepResult{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", jdksDir)
	}

	result := &SweepResult{}
	remove := func(path string) {
		if err := h.repo.RemoveJdkPath(path); err != nil {
			util.LogVerbose("Sweep failed to remove %s: %v", path, err)
			return
		}
		result.RemovedPaths = append(result.RemovedPaths, path)
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(jdksDir, name)

		switch {
		case name == ".tmp":
			// Staging orphans from crashed installs.
			if staging, err := os.ReadDir(path); err == nil {
				for _, s := range staging {
					if strings.HasPrefix(s.Name(), "install-") {
						remove(filepath.Join(path, s.Name()))
					}
				}
			}

		case strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".removing"):
			// Interrupted removals.
			remove(path)

		case entry.IsDir() && !platform.IsHiddenName(name):
			// Partial installs: a slug directory without a java binary.
			if storage.ParseJdkDirName(path) == nil {
				continue
			}
			if _, err := storage.ProbeJavaHome(path); err != nil {
				remove(path)
			}

		case !entry.IsDir() && strings.HasSuffix(name, ".meta.json"):
			// Orphan sidecars.
			slug := strings.TrimSuffix(name, ".meta.json")
			if _, err := os.Stat(filepath.Join(jdksDir, slug)); os.IsNotExist(err) {
				if err := os.Remove(path); err != nil {
					util.LogVerbose("Sweep failed to remove %s: %v", path, err)
					continue
				}
				result.RemovedPaths = append(result.RemovedPaths, path)
			}
		}
	}

	return result, nil
}
