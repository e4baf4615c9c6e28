package cache

import (
	"sort"

	"github.com/kopi-vm/kopi/pkg/distribution"
	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/version"
)

// Search queries the cached catalog with a version request.
//
// The pattern is matched against the package's feature version, unless it
// targets the vendor's own numbering (four or more components, or a '+'
// tail with a dot or non-digit), in which case the distribution version is
// matched instead. Distribution-version matching is a component-prefix
// comparison, so "21.0.7" matches "21.0.7.6.1" but never "21.0.71".
func (c *MetadataCache) Search(req version.Request) []metadata.JdkMetadata {
	var distFilter string
	if req.Distribution != "" {
		distFilter = distribution.ParseWithSynonyms(req.Distribution, c.Synonyms).ID()
	}

	useDistVersion := version.IsDistributionVersionPattern(req.VersionPattern)

	ids := make([]string, 0, len(c.Distributions))
	for id := range c.Distributions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matches []metadata.JdkMetadata
	for _, id := range ids {
		dist := c.Distributions[id]
		if distFilter != "" && id != distFilter {
			continue
		}
		for _, pkg := range dist.Packages {
			if req.PackageType != "" && pkg.PackageType != string(req.PackageType) {
				continue
			}
			target := pkg.Version
			if useDistVersion {
				target = pkg.DistributionVersion
			}
			if target.MatchesPattern(req.VersionPattern) {
				matches = append(matches, pkg)
			}
		}
	}

	// Highest version first; stable, so ties keep distribution-id order
	// and, within a distribution, the cached package order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Version.Compare(matches[j].Version) > 0
	})

	return matches
}
