// Package install orchestrates the JDK installation pipeline: select a
// package, stage, download, verify, extract and atomically commit.
package install

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/archive"
	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/distribution"
	"github.com/kopi-vm/kopi/pkg/download"
	"github.com/kopi-vm/kopi/pkg/lock"
	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/util"
	"github.com/kopi-vm/kopi/pkg/version"
)

// ErrNoMatchingPackage reports that no catalog package satisfies the
// request on the current platform.
var ErrNoMatchingPackage = errors.New("no matching JDK package found")

// ErrMissingJavaBinary reports an extracted archive without bin/java.
var ErrMissingJavaBinary = errors.New("extracted archive contains no java executable")

// Options tunes a single install.
type Options struct {
	// Force replaces an existing installation of the same slug.
	Force bool
	// Progress observes the archive download; nil disables reporting.
	Progress download.ProgressReporter
	// EnforceTrustedDomains refuses download hosts outside the
	// allow-list.
	EnforceTrustedDomains bool
	// DryRun stops after package selection.
	DryRun bool
}

// Result describes a completed installation.
type Result struct {
	Installed storage.InstalledJdk
	Package   metadata.JdkMetadata
	JavaHome  string
}

// Installer wires the metadata provider, cache and storage repository
// into the install pipeline.
type Installer struct {
	cfg      *config.KopiConfig
	provider *metadata.Provider
	repo     *storage.Repository
}

// New creates an installer.
func New(cfg *config.KopiConfig, provider *metadata.Provider, repo *storage.Repository) *Installer {
	return &Installer{cfg: cfg, provider: provider, repo: repo}
}

// Install resolves a version request to a concrete package and installs
// it. Concurrent installs of the same slug are serialized by an
// advisory file lock; the loser of a race fails with either a lock
// timeout or an already-exists error.
func (i *Installer) Install(req version.Request, opts Options) (*Result, error) {
	pkg, err := i.SelectPackage(req)
	if err != nil {
		return nil, err
	}

	dist := distribution.Parse(pkg.Distribution)
	distVersion := pkg.DistributionVersion.String()
	slug := dist.ID() + "-" + distVersion

	if opts.DryRun {
		return &Result{Package: *pkg}, nil
	}

	installLock, err := lock.Acquire(i.cfg.LocksDir(), slug, i.cfg.LockTimeout())
	if err != nil {
		return nil, err
	}
	defer installLock.Release()

	installPath := i.repo.InstallPath(dist, distVersion)
	replaced, err := i.handleExisting(installPath, slug, opts.Force)
	if err != nil {
		return nil, err
	}

	ctx, err := i.repo.PrepareInstallation(dist, distVersion)
	if err != nil {
		i.rollbackReplaced(replaced, installPath)
		return nil, err
	}

	result, err := i.runPipeline(ctx, pkg, opts)
	if err != nil {
		if cleanupErr := i.repo.CleanupFailedInstallation(ctx); cleanupErr != nil {
			util.LogVerbose("Failed to clean staging %s: %v", ctx.TempPath, cleanupErr)
		}
		i.rollbackReplaced(replaced, installPath)
		return nil, err
	}

	if replaced != "" {
		if err := i.repo.RemoveJdkPath(replaced); err != nil {
			util.LogVerbose("Failed to remove replaced install %s: %v", replaced, err)
		}
	}
	return result, nil
}

// runPipeline executes download → verify → extract → flatten → commit →
// sidecar against a prepared staging context.
func (i *Installer) runPipeline(ctx *storage.InstallationContext, pkg *metadata.JdkMetadata, opts Options) (*Result, error) {
	if err := i.provider.EnsureComplete(pkg); err != nil {
		return nil, err
	}
	if pkg.Checksum == "" {
		fmt.Printf("  Warning: no checksum available for %s, proceeding without verification\n", pkg.ID)
	}

	archivePath := filepath.Join(ctx.TempPath, archiveFileName(pkg))
	err := download.Download(pkg.DownloadURL, archivePath, &download.Options{
		Checksum:              pkg.Checksum,
		ChecksumType:          pkg.ChecksumType,
		Timeout:               i.cfg.DownloadTimeout(),
		Progress:              opts.Progress,
		EnforceTrustedDomains: opts.EnforceTrustedDomains,
	})
	if err != nil {
		return nil, err
	}

	extractedDir := filepath.Join(ctx.TempPath, "extracted")
	if err := archive.Extract(archivePath, extractedDir); err != nil {
		return nil, err
	}

	jdkRoot, structureType, err := flattenRoot(extractedDir)
	if err != nil {
		return nil, err
	}

	javaHome, err := storage.ProbeJavaHome(jdkRoot)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingJavaBinary, "%v", err)
	}
	javaHomeSuffix, err := filepath.Rel(jdkRoot, javaHome)
	if err != nil || javaHomeSuffix == "." {
		javaHomeSuffix = ""
	}
	javaHomeSuffix = filepath.ToSlash(javaHomeSuffix)

	// Commit the JDK root, then clear what is left of the staging dir
	// (the downloaded archive and the extraction wrapper).
	commitCtx := &storage.InstallationContext{
		FinalPath: ctx.FinalPath,
		TempPath:  jdkRoot,
	}
	finalPath, err := i.repo.FinalizeInstallation(commitCtx)
	if err != nil {
		return nil, err
	}
	if err := i.repo.CleanupFailedInstallation(ctx); err != nil {
		util.LogVerbose("Failed to clean staging %s: %v", ctx.TempPath, err)
	}

	installed := storage.ParseJdkDirName(finalPath)
	if installed == nil {
		installed = &storage.InstalledJdk{
			Distribution: pkg.Distribution,
			Version:      pkg.DistributionVersion,
			Path:         finalPath,
		}
	}

	// Sidecar failure does not roll back a committed install.
	sidecar := &storage.InstalledMetadata{
		Package:              *pkg,
		InstallationMetadata: storage.NewInstallationMetadata(javaHomeSuffix, structureType),
	}
	if err := i.repo.SaveMetadata(installed, sidecar); err != nil {
		fmt.Printf("  Warning: installed %s but failed to write metadata: %v\n",
			installed.Slug(), err)
	}

	home := finalPath
	if javaHomeSuffix != "" {
		home = filepath.Join(finalPath, filepath.FromSlash(javaHomeSuffix))
	}

	return &Result{
		Installed: *installed,
		Package:   *pkg,
		JavaHome:  home,
	}, nil
}

// handleExisting moves an existing slug aside when force is set; the
// moved directory is deleted only after a successful finalize.
func (i *Installer) handleExisting(installPath, slug string, force bool) (string, error) {
	if _, err := os.Stat(installPath); err != nil {
		return "", nil
	}
	if !force {
		return "", errors.Wrapf(storage.ErrAlreadyExists,
			"%s is already installed (use --force to reinstall)", slug)
	}

	replaced := filepath.Join(filepath.Dir(installPath), "."+slug+".removing")
	if err := os.RemoveAll(replaced); err != nil {
		return "", errors.Wrapf(err, "failed to clear %s", replaced)
	}
	if err := platform.AtomicRename(installPath, replaced); err != nil {
		return "", errors.Wrapf(err, "failed to move existing install aside")
	}
	return replaced, nil
}

func (i *Installer) rollbackReplaced(replaced, installPath string) {
	if replaced == "" {
		return
	}
	if err := platform.AtomicRename(replaced, installPath); err != nil {
		util.LogVerbose("Failed to restore %s: %v", installPath, err)
	}
}

// flattenRoot determines the effective JDK root of an extraction: a
// single top-level directory becomes the root ("nested"), otherwise the
// extraction directory itself is the root ("direct").
func flattenRoot(extractedDir string) (string, string, error) {
	entries, err := os.ReadDir(extractedDir)
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to read %s", extractedDir)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(extractedDir, entries[0].Name()), "nested", nil
	}
	return extractedDir, "direct", nil
}

func archiveFileName(pkg *metadata.JdkMetadata) string {
	if parsed, err := url.Parse(pkg.DownloadURL); err == nil {
		if base := filepath.Base(parsed.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	ext := pkg.ArchiveType
	if ext == "" {
		ext = "tar.gz"
	}
	return pkg.ID + "." + ext
}
