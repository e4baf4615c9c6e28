package metadata

import "time"

// Source is a catalog provider. Implementations: the Foojay Disco API,
// an HTTP-hosted index, and a local metadata directory.
type Source interface {
	// ID returns the stable source identifier used in configuration and
	// health reports.
	ID() string

	// Name returns the human-readable source name.
	Name() string

	// IsAvailable performs a cheap liveness probe.
	IsAvailable() bool

	// FetchAll returns the catalog in its current platform-scoped view.
	FetchAll() ([]JdkMetadata, error)

	// FetchDistribution returns the catalog entries for one canonical
	// distribution id.
	FetchDistribution(distribution string) ([]JdkMetadata, error)

	// FetchPackageDetails resolves the lazy fields of a package. The
	// HTTP-index source fails with ErrAlreadyComplete; the local source
	// answers from its own records.
	FetchPackageDetails(id string) (*PackageDetails, error)

	// LastUpdated returns the source's publication timestamp when known.
	LastUpdated() *time.Time
}
