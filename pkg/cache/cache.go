// Package cache persists the composed JDK catalog to disk and answers
// version queries against it.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/distribution"
	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/util"
)

const cacheSchemaVersion = 1

// DistributionCache groups the cached packages of one distribution.
type DistributionCache struct {
	DisplayName string                 `json:"display_name"`
	Packages    []metadata.JdkMetadata `json:"packages"`
}

// MetadataCache is the on-disk catalog snapshot, written atomically as a
// single JSON blob and replaced wholesale on refresh.
type MetadataCache struct {
	Version       int                          `json:"version"`
	LastUpdated   time.Time                    `json:"last_updated"`
	Distributions map[string]DistributionCache `json:"distributions"`
	Synonyms      map[string]string            `json:"synonyms,omitempty"`
}

// New creates an empty cache stamped now.
func New() *MetadataCache {
	return &MetadataCache{
		Version:       cacheSchemaVersion,
		LastUpdated:   time.Now().UTC(),
		Distributions: make(map[string]DistributionCache),
	}
}

// FromPackages groups a fetched catalog into a cache snapshot.
func FromPackages(packages []metadata.JdkMetadata) *MetadataCache {
	c := New()
	for _, pkg := range packages {
		dist := distribution.Distribution(pkg.Distribution)
		entry := c.Distributions[pkg.Distribution]
		if entry.DisplayName == "" {
			entry.DisplayName = dist.DisplayName()
		}
		entry.Packages = append(entry.Packages, pkg)
		c.Distributions[pkg.Distribution] = entry
	}
	return c
}

// Load reads a cache snapshot; an absent or unreadable file is treated
// as an empty cache, and a corrupt one as an empty cache with a warning.
func Load(path string) *MetadataCache {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			util.LogVerbose("Failed to read cache %s: %v", path, err)
		}
		return New()
	}

	var c MetadataCache
	if err := json.Unmarshal(data, &c); err != nil {
		fmt.Printf("  Warning: cache %s is corrupt, treating as empty: %v\n", path, err)
		return New()
	}
	if c.Distributions == nil {
		c.Distributions = make(map[string]DistributionCache)
	}
	return &c
}

// Save writes the snapshot atomically: serialize, write to <path>.tmp,
// rename over the final path.
func (c *MetadataCache) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize cache")
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}
	if err := platform.AtomicRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "failed to rename cache file")
	}
	return nil
}

// IsStale reports whether the snapshot is older than maxAge. A clock
// that went backwards also reads as stale.
func (c *MetadataCache) IsStale(maxAge time.Duration) bool {
	now := time.Now().UTC()
	if now.Before(c.LastUpdated) {
		return true
	}
	return now.Sub(c.LastUpdated) > maxAge
}

// IsEmpty reports whether the snapshot carries no packages.
func (c *MetadataCache) IsEmpty() bool {
	for _, dist := range c.Distributions {
		if len(dist.Packages) > 0 {
			return false
		}
	}
	return true
}

// Packages returns every cached package.
func (c *MetadataCache) Packages() []metadata.JdkMetadata {
	var all []metadata.JdkMetadata
	for _, dist := range c.Distributions {
		all = append(all, dist.Packages...)
	}
	return all
}
