package cache

import (
	"github.com/kopi-vm/kopi/pkg/metadata"
)

// Refresh fetches the catalog from the provider and replaces the
// snapshot at path.
func Refresh(path string, provider *metadata.Provider) (*MetadataCache, error) {
	packages, err := provider.FetchAll()
	if err != nil {
		return nil, err
	}
	c := FromPackages(packages)
	if err := c.Save(path); err != nil {
		return nil, err
	}
	return c, nil
}
