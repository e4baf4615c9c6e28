package metadata

import (
	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/util"
)

// ErrAllSourcesFailed reports that every configured source was
// unavailable or failed.
var ErrAllSourcesFailed = errors.New("all metadata sources failed")

// SourceHealth reports the result of probing one source.
type SourceHealth struct {
	Available bool
	Reason    string
}

// Provider composes an ordered list of sources with fallback: the first
// source to answer wins, and an empty catalog from a healthy source is
// still a success.
type Provider struct {
	sources []Source
}

// NewProvider creates a provider over the given sources, tried in order.
func NewProvider(sources ...Source) *Provider {
	return &Provider{sources: sources}
}

// Sources returns the configured sources in fallback order.
func (p *Provider) Sources() []Source {
	return p.sources
}

// FetchAll returns the composed catalog from the first healthy source.
func (p *Provider) FetchAll() ([]JdkMetadata, error) {
	return p.fetchWith(func(s Source) ([]JdkMetadata, error) {
		return s.FetchAll()
	})
}

// FetchDistribution returns one distribution's packages from the first
// healthy source.
func (p *Provider) FetchDistribution(distribution string) ([]JdkMetadata, error) {
	return p.fetchWith(func(s Source) ([]JdkMetadata, error) {
		return s.FetchDistribution(distribution)
	})
}

func (p *Provider) fetchWith(fetch func(Source) ([]JdkMetadata, error)) ([]JdkMetadata, error) {
	if len(p.sources) == 0 {
		return nil, errors.New("no metadata sources configured")
	}

	var lastErr error
	for _, source := range p.sources {
		if !source.IsAvailable() {
			lastErr = errors.Errorf("source %s is not available", source.ID())
			util.LogVerbose("Metadata source %s unavailable, trying next", source.ID())
			continue
		}
		result, err := fetch(source)
		if err != nil {
			lastErr = errors.Wrapf(err, "source %s failed", source.ID())
			util.LogVerbose("Metadata source %s failed: %v", source.ID(), err)
			continue
		}
		return result, nil
	}
	return nil, errors.Wrapf(ErrAllSourcesFailed, "%v", lastErr)
}

// EnsureComplete populates the lazy fields of a package, trying sources
// in order. A no-op when the record is already complete.
func (p *Provider) EnsureComplete(m *JdkMetadata) error {
	if m.IsComplete() {
		return nil
	}

	var lastErr error
	for _, source := range p.sources {
		details, err := source.FetchPackageDetails(m.ID)
		if err != nil {
			lastErr = err
			continue
		}
		m.DownloadURL = details.DownloadURL
		if details.Checksum != "" {
			m.Checksum = details.Checksum
			m.ChecksumType = details.ChecksumType
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no metadata sources configured")
	}
	return errors.Wrapf(lastErr, "failed to resolve package details for %s", m.ID)
}

// EnsureCompleteBatch completes records sequentially; the first failure
// aborts the batch.
func (p *Provider) EnsureCompleteBatch(list []JdkMetadata) error {
	for i := range list {
		if err := p.EnsureComplete(&list[i]); err != nil {
			return err
		}
	}
	return nil
}

// CheckSourcesHealth probes each source without raising.
func (p *Provider) CheckSourcesHealth() map[string]SourceHealth {
	health := make(map[string]SourceHealth, len(p.sources))
	for _, source := range p.sources {
		if source.IsAvailable() {
			health[source.ID()] = SourceHealth{Available: true}
		} else {
			health[source.ID()] = SourceHealth{
				Available: false,
				Reason:    "availability probe failed",
			}
		}
	}
	return health
}
