package install

import (
	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/cache"
	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/version"
)

// SelectPackage locates the catalog package for a request on the
// current platform, refreshing the metadata cache when it has nothing
// to offer.
func (i *Installer) SelectPackage(req version.Request) (*metadata.JdkMetadata, error) {
	c := cache.Load(i.cfg.CachePath())
	refreshed := false
	if c.IsEmpty() || c.IsStale(i.cfg.CacheMaxAge()) {
		fresh, err := cache.Refresh(i.cfg.CachePath(), i.provider)
		if err != nil {
			return nil, err
		}
		c = fresh
		refreshed = true
	}

	pkg := selectFrom(c.Search(req), req)
	if pkg == nil && !refreshed {
		// The snapshot may simply predate the requested release.
		if fresh, err := cache.Refresh(i.cfg.CachePath(), i.provider); err == nil {
			pkg = selectFrom(fresh.Search(req), req)
		}
	}
	if pkg == nil {
		return nil, errors.Wrapf(ErrNoMatchingPackage, "%s for %s", req.String(), platform.Directory())
	}
	return pkg, nil
}

// selectFrom applies the platform and preference rules:
//   - only packages for the host OS and architecture are considered;
//   - an explicit package type restricts, otherwise jdk is preferred
//     over jre;
//   - on Linux a matching libc is preferred;
//   - ties resolve to the first remaining candidate in the order the
//     search returned them, so the choice is deterministic.
func selectFrom(candidates []metadata.JdkMetadata, req version.Request) *metadata.JdkMetadata {
	var eligible []metadata.JdkMetadata
	for _, pkg := range candidates {
		if !platform.MatchesOS(pkg.OperatingSystem) || !platform.MatchesArch(pkg.Architecture) {
			continue
		}
		if _, err := archiveTypeSupported(pkg.ArchiveType); err != nil {
			continue
		}
		eligible = append(eligible, pkg)
	}
	if len(eligible) == 0 {
		return nil
	}

	if req.PackageType != "" {
		eligible = filterPackages(eligible, func(p metadata.JdkMetadata) bool {
			return p.PackageType == string(req.PackageType)
		})
	} else if jdks := filterPackages(eligible, func(p metadata.JdkMetadata) bool {
		return p.PackageType == "jdk"
	}); len(jdks) > 0 {
		eligible = jdks
	}
	if len(eligible) == 0 {
		return nil
	}

	if libc := platform.CurrentLibC(); libc != "" {
		if matching := filterPackages(eligible, func(p metadata.JdkMetadata) bool {
			return p.LibCType == "" || p.LibCType == libc
		}); len(matching) > 0 {
			eligible = matching
		}
	}

	return &eligible[0]
}

func filterPackages(list []metadata.JdkMetadata, keep func(metadata.JdkMetadata) bool) []metadata.JdkMetadata {
	var out []metadata.JdkMetadata
	for _, pkg := range list {
		if keep(pkg) {
			out = append(out, pkg)
		}
	}
	return out
}

func archiveTypeSupported(archiveType string) (string, error) {
	switch archiveType {
	case "tar.gz", "tgz", "zip", "tar.xz":
		return archiveType, nil
	default:
		return "", errors.Errorf("unsupported archive type %q", archiveType)
	}
}
