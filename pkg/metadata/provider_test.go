package metadata

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopi-vm/kopi/pkg/version"
)

// fakeSource is a scriptable Source for provider tests.
type fakeSource struct {
	id        string
	available bool
	packages  []JdkMetadata
	fetchErr  error
	details   map[string]*PackageDetails
	updated   *time.Time

	fetchCalls int
}

func (f *fakeSource) ID() string        { return f.id }
func (f *fakeSource) Name() string      { return f.id }
func (f *fakeSource) IsAvailable() bool { return f.available }

func (f *fakeSource) FetchAll() ([]JdkMetadata, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.packages, nil
}

func (f *fakeSource) FetchDistribution(dist string) ([]JdkMetadata, error) {
	all, err := f.FetchAll()
	if err != nil {
		return nil, err
	}
	var filtered []JdkMetadata
	for _, m := range all {
		if m.Distribution == dist {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func (f *fakeSource) FetchPackageDetails(id string) (*PackageDetails, error) {
	if f.details == nil {
		return nil, ErrAlreadyComplete
	}
	d, ok := f.details[id]
	if !ok {
		return nil, errors.Errorf("package %q not found", id)
	}
	return d, nil
}

func (f *fakeSource) LastUpdated() *time.Time { return f.updated }

func samplePackage(id, dist, ver string) JdkMetadata {
	v, err := version.Parse(ver)
	if err != nil {
		panic(err)
	}
	return JdkMetadata{
		ID:                  id,
		Distribution:        dist,
		Version:             v,
		DistributionVersion: v,
		Architecture:        "x64",
		OperatingSystem:     "linux",
		PackageType:         "jdk",
		ArchiveType:         "tar.gz",
		Size:                100_000_000,
	}
}

func TestProviderFallback(t *testing.T) {
	down := &fakeSource{id: "primary", available: false}
	up := &fakeSource{
		id:        "secondary",
		available: true,
		packages:  []JdkMetadata{samplePackage("a", "temurin", "21.0.1")},
	}

	provider := NewProvider(down, up)
	result, err := provider.FetchAll()
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "a", result[0].ID)
	assert.Zero(t, down.fetchCalls)
}

func TestProviderFallbackOnError(t *testing.T) {
	failing := &fakeSource{id: "primary", available: true, fetchErr: errors.New("boom")}
	up := &fakeSource{
		id:        "secondary",
		available: true,
		packages:  []JdkMetadata{samplePackage("a", "temurin", "21.0.1")},
	}

	provider := NewProvider(failing, up)
	result, err := provider.FetchAll()
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestProviderEmptyCatalogIsSuccess(t *testing.T) {
	empty := &fakeSource{id: "primary", available: true}
	fallback := &fakeSource{
		id:        "secondary",
		available: true,
		packages:  []JdkMetadata{samplePackage("a", "temurin", "21.0.1")},
	}

	provider := NewProvider(empty, fallback)
	result, err := provider.FetchAll()
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Zero(t, fallback.fetchCalls)
}

func TestProviderAllSourcesFail(t *testing.T) {
	a := &fakeSource{id: "a", available: false}
	b := &fakeSource{id: "b", available: true, fetchErr: errors.New("boom")}

	provider := NewProvider(a, b)
	_, err := provider.FetchAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all metadata sources failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestProviderFetchDistribution(t *testing.T) {
	src := &fakeSource{
		id:        "a",
		available: true,
		packages: []JdkMetadata{
			samplePackage("a", "temurin", "21.0.1"),
			samplePackage("b", "corretto", "21.0.1"),
		},
	}

	provider := NewProvider(src)
	result, err := provider.FetchDistribution("corretto")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "b", result[0].ID)
}

func TestEnsureComplete(t *testing.T) {
	pkg := samplePackage("pkg-1", "temurin", "21.0.1")
	require.False(t, pkg.IsComplete())

	src := &fakeSource{
		id:        "a",
		available: true,
		details: map[string]*PackageDetails{
			"pkg-1": {
				DownloadURL:  "https://example.com/jdk.tar.gz",
				Checksum:     "abc",
				ChecksumType: ChecksumSHA256,
			},
		},
	}

	provider := NewProvider(src)
	require.NoError(t, provider.EnsureComplete(&pkg))
	assert.True(t, pkg.IsComplete())
	assert.Equal(t, "https://example.com/jdk.tar.gz", pkg.DownloadURL)
	assert.Equal(t, ChecksumSHA256, pkg.ChecksumType)

	// Idempotent once complete, even if sources go away.
	provider = NewProvider()
	require.NoError(t, provider.EnsureComplete(&pkg))
}

func TestEnsureCompleteFallsThroughSources(t *testing.T) {
	pkg := samplePackage("pkg-1", "temurin", "21.0.1")

	indexSource := &fakeSource{id: "http", available: true} // ErrAlreadyComplete
	apiSource := &fakeSource{
		id:        "foojay",
		available: true,
		details: map[string]*PackageDetails{
			"pkg-1": {DownloadURL: "https://example.com/jdk.tar.gz"},
		},
	}

	provider := NewProvider(indexSource, apiSource)
	require.NoError(t, provider.EnsureComplete(&pkg))
	assert.True(t, pkg.IsComplete())
}

func TestEnsureCompleteBatchAbortsOnFailure(t *testing.T) {
	list := []JdkMetadata{
		samplePackage("known", "temurin", "21.0.1"),
		samplePackage("unknown", "temurin", "21.0.2"),
		samplePackage("never-reached", "temurin", "21.0.3"),
	}

	src := &fakeSource{
		id:        "a",
		available: true,
		details: map[string]*PackageDetails{
			"known": {DownloadURL: "https://example.com/jdk.tar.gz"},
		},
	}

	provider := NewProvider(src)
	err := provider.EnsureCompleteBatch(list)
	require.Error(t, err)
	assert.True(t, list[0].IsComplete())
	assert.False(t, list[1].IsComplete())
	assert.False(t, list[2].IsComplete())
}

func TestCheckSourcesHealth(t *testing.T) {
	provider := NewProvider(
		&fakeSource{id: "up", available: true},
		&fakeSource{id: "down", available: false},
	)

	health := provider.CheckSourcesHealth()
	assert.True(t, health["up"].Available)
	assert.False(t, health["down"].Available)
	assert.NotEmpty(t, health["down"].Reason)
}
