// Package storage owns the on-disk kopi home: the jdks tree, install
// staging, sidecar metadata and version files.
package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/version"
)

// InstalledJdk is one installation under jdks/, parsed from its slug.
type InstalledJdk struct {
	Distribution string
	Version      version.Version
	Path         string
}

// Slug returns the canonical on-disk name of the installation.
func (j *InstalledJdk) Slug() string {
	return j.Distribution + "-" + j.Version.String()
}

// WriteTo persists "<dist>@<minimal-version>" to a version file via
// temp-file plus rename.
func (j *InstalledJdk) WriteTo(path string) error {
	if parent := filepath.Dir(path); parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", parent)
		}
	}

	content := j.Distribution + "@" + j.Version.MinimalString()
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", tempPath)
	}
	if err := platform.AtomicRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrapf(err, "failed to rename %s to %s", tempPath, path)
	}
	return nil
}

// ListInstalledJdks enumerates jdks/, skipping hidden entries and
// directories that do not parse as a slug. The result is sorted by
// distribution ascending, then version descending.
func ListInstalledJdks(jdksDir string) ([]InstalledJdk, error) {
	entries, err := os.ReadDir(jdksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", jdksDir)
	}

	var installed []InstalledJdk
	for _, entry := range entries {
		if !entry.IsDir() || platform.IsHiddenName(entry.Name()) {
			continue
		}
		jdk := ParseJdkDirName(filepath.Join(jdksDir, entry.Name()))
		if jdk == nil {
			continue
		}
		installed = append(installed, *jdk)
	}

	sort.SliceStable(installed, func(i, j int) bool {
		if installed[i].Distribution != installed[j].Distribution {
			return installed[i].Distribution < installed[j].Distribution
		}
		return installed[i].Version.Compare(installed[j].Version) > 0
	})

	return installed, nil
}

// ParseJdkDirName splits a slug directory at the first "-<digit>"
// boundary, so "graalvm-ce-21.0.1" parses as distribution "graalvm-ce"
// version "21.0.1". Returns nil for names that do not parse.
func ParseJdkDirName(path string) *InstalledJdk {
	name := filepath.Base(path)

	splitPos := -1
	for i := 0; i+1 < len(name); i++ {
		if name[i] == '-' && name[i+1] >= '0' && name[i+1] <= '9' {
			splitPos = i
			break
		}
	}
	if splitPos <= 0 {
		return nil
	}

	dist := name[:splitPos]
	parsed, err := version.Parse(name[splitPos+1:])
	if err != nil {
		return nil
	}

	return &InstalledJdk{
		Distribution: dist,
		Version:      parsed,
		Path:         path,
	}
}

// JdkSize returns the total size of regular files under path.
func JdkSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to measure %s", path)
	}
	return total, nil
}
