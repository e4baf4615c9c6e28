// Package uninstall removes installed JDKs with safety checks, an
// atomic rename-away protocol and transactional batch semantics.
package uninstall

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/lock"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/util"
	"github.com/kopi-vm/kopi/pkg/version"
)

// ErrNotInstalled reports that no installed JDK matches the spec.
var ErrNotInstalled = errors.New("JDK not installed")

// AmbiguousError reports a spec matching more than one installation.
type AmbiguousError struct {
	Spec    string
	Matches []storage.InstalledJdk
}

func (e *AmbiguousError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "multiple JDKs match %q:", e.Spec)
	for _, jdk := range e.Matches {
		fmt.Fprintf(&sb, "\n  %s@%s", jdk.Distribution, jdk.Version.String())
	}
	sb.WriteString("\nspecify distribution@version (e.g. temurin@21.0.5+11)")
	return sb.String()
}

// Options tunes an uninstall.
type Options struct {
	// Force bypasses the in-use safety checks.
	Force bool
	// DryRun reports what would be removed without touching disk.
	DryRun bool
}

// Removal describes one removed (or would-be removed) installation.
type Removal struct {
	Jdk  storage.InstalledJdk
	Size int64
}

// Handler executes uninstall operations against a repository.
type Handler struct {
	cfg  *config.KopiConfig
	repo *storage.Repository
}

// New creates an uninstall handler.
func New(cfg *config.KopiConfig, repo *storage.Repository) *Handler {
	return &Handler{cfg: cfg, repo: repo}
}

// Uninstall removes the single installation matching spec
// ("<dist>@<pattern>" or a bare pattern). Zero matches fail with
// ErrNotInstalled; multiple matches fail with a disambiguation hint.
func (h *Handler) Uninstall(spec string, opts Options) (*Removal, error) {
	req, err := version.ParseRequest(spec)
	if err != nil {
		return nil, err
	}

	matches, err := h.repo.FindMatching(req)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.Wrapf(ErrNotInstalled, "%s", spec)
	}
	if len(matches) > 1 {
		return nil, &AmbiguousError{Spec: spec, Matches: matches}
	}

	jdk := matches[0]
	size, err := h.repo.JdkSize(&jdk)
	if err != nil {
		size = 0
	}

	if opts.DryRun {
		return &Removal{Jdk: jdk, Size: size}, nil
	}

	if err := h.removeOne(&jdk, opts); err != nil {
		return nil, err
	}
	return &Removal{Jdk: jdk, Size: size}, nil
}

// removeOne performs the safety-checked, observable-atomic removal of a
// single installation. Uninstall shares the per-slug lock with install.
func (h *Handler) removeOne(jdk *storage.InstalledJdk, opts Options) error {
	slugLock, err := lock.Acquire(h.cfg.LocksDir(), jdk.Slug(), h.cfg.LockTimeout())
	if err != nil {
		return err
	}
	defer slugLock.Release()

	if !opts.Force {
		if err := CheckNotInUse(h.cfg, jdk); err != nil {
			return err
		}
	}

	// Rename to a hidden sibling first so resolvers never observe a
	// half-deleted slug.
	removingPath := filepath.Join(filepath.Dir(jdk.Path), "."+jdk.Slug()+".removing")
	if err := os.RemoveAll(removingPath); err != nil {
		return errors.Wrapf(err, "failed to clear %s", removingPath)
	}
	if err := platform.AtomicRename(jdk.Path, removingPath); err != nil {
		return errors.Wrapf(err, "failed to stage removal of %s", jdk.Slug())
	}

	if err := h.repo.RemoveJdkPath(removingPath); err != nil {
		// Roll the rename back so the install stays usable.
		if rollbackErr := platform.AtomicRename(removingPath, jdk.Path); rollbackErr != nil {
			util.LogVerbose("Failed to roll back removal of %s: %v", jdk.Slug(), rollbackErr)
		}
		return errors.Wrapf(err, "failed to remove %s", jdk.Slug())
	}

	if err := h.repo.RemoveSidecar(jdk); err != nil {
		util.LogVerbose("Failed to remove sidecar for %s: %v", jdk.Slug(), err)
	}
	return nil
}
