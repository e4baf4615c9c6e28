package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/distribution"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/util"
	"github.com/kopi-vm/kopi/pkg/version"
)

// ErrAlreadyExists reports an install target that is already present.
var ErrAlreadyExists = errors.New("already installed")

// ErrSecurity reports a refused filesystem operation outside jdks/.
var ErrSecurity = errors.New("path is outside the JDKs directory")

// InstallationContext pairs the final install path with its staging
// directory for the atomic prepare/finalize protocol.
type InstallationContext struct {
	FinalPath string
	TempPath  string
}

// Repository owns all mutations of the jdks/ tree.
type Repository struct {
	cfg *config.KopiConfig
}

// NewRepository creates a repository over the configured kopi home.
func NewRepository(cfg *config.KopiConfig) *Repository {
	return &Repository{cfg: cfg}
}

// JdksDir returns the installation root.
func (r *Repository) JdksDir() string {
	return r.cfg.JdksDir()
}

// InstallPath returns jdks/<dist>-<distversion> for a slug.
func (r *Repository) InstallPath(dist distribution.Distribution, distVersion string) string {
	return filepath.Join(r.cfg.JdksDir(), dist.ID()+"-"+distVersion)
}

// PrepareInstallation rejects duplicate slugs, verifies free disk space
// and creates a fresh staging directory under jdks/.tmp.
func (r *Repository) PrepareInstallation(dist distribution.Distribution, distVersion string) (*InstallationContext, error) {
	installPath := r.InstallPath(dist, distVersion)

	if _, err := os.Stat(installPath); err == nil {
		return nil, errors.Wrapf(ErrAlreadyExists,
			"%s %s is already installed at %s (use --force to reinstall)",
			dist.DisplayName(), distVersion, installPath)
	}

	if err := CheckDiskSpace(installPath, r.cfg.Settings.Storage.MinDiskSpaceMB); err != nil {
		return nil, err
	}

	tempParent := r.cfg.TempInstallDir()
	if err := os.MkdirAll(tempParent, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", tempParent)
	}

	tempPath := filepath.Join(tempParent, "install-"+uuid.NewString())
	if err := os.Mkdir(tempPath, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create staging directory %s", tempPath)
	}

	return &InstallationContext{
		FinalPath: installPath,
		TempPath:  tempPath,
	}, nil
}

// FinalizeInstallation atomically renames the staging content into the
// final path. The staging directory lives under jdks/, so the rename
// never crosses filesystems.
func (r *Repository) FinalizeInstallation(ctx *InstallationContext) (string, error) {
	if parent := filepath.Dir(ctx.FinalPath); parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return "", errors.Wrapf(err, "failed to create %s", parent)
		}
	}

	if err := platform.AtomicRename(ctx.TempPath, ctx.FinalPath); err != nil {
		if removeErr := os.RemoveAll(ctx.TempPath); removeErr != nil {
			util.LogVerbose("Failed to clean staging %s: %v", ctx.TempPath, removeErr)
		}
		return "", errors.Wrapf(err, "failed to finalize installation at %s", ctx.FinalPath)
	}
	return ctx.FinalPath, nil
}

// CleanupFailedInstallation removes the staging directory.
func (r *Repository) CleanupFailedInstallation(ctx *InstallationContext) error {
	if _, err := os.Stat(ctx.TempPath); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(ctx.TempPath)
}

// RemoveJdkPath recursively removes a path after verifying it is a
// descendant of jdks/.
func (r *Repository) RemoveJdkPath(path string) error {
	jdksDir := filepath.Clean(r.cfg.JdksDir())
	cleaned := filepath.Clean(path)
	if cleaned == jdksDir || !strings.HasPrefix(cleaned, jdksDir+string(os.PathSeparator)) {
		return errors.Wrapf(ErrSecurity, "refusing to remove %s", path)
	}
	return os.RemoveAll(cleaned)
}

// ListInstalled enumerates the installed JDKs.
func (r *Repository) ListInstalled() ([]InstalledJdk, error) {
	return ListInstalledJdks(r.cfg.JdksDir())
}

// FindMatching filters installed JDKs by the request's distribution and
// version pattern, sorted ascending by version (stable).
func (r *Repository) FindMatching(req version.Request) ([]InstalledJdk, error) {
	all, err := r.ListInstalled()
	if err != nil {
		return nil, err
	}

	var distFilter string
	if req.Distribution != "" {
		distFilter = distribution.Parse(req.Distribution).ID()
	}

	var matching []InstalledJdk
	for _, jdk := range all {
		if distFilter != "" && jdk.Distribution != distFilter {
			continue
		}
		if !jdk.Version.MatchesPattern(req.VersionPattern) {
			continue
		}
		matching = append(matching, jdk)
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Version.Compare(matching[j].Version) < 0
	})

	return matching, nil
}

// JdkSize returns the on-disk size of one installation.
func (r *Repository) JdkSize(jdk *InstalledJdk) (int64, error) {
	return JdkSize(jdk.Path)
}
