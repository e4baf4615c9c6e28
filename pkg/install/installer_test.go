package install

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/download"
	"github.com/kopi-vm/kopi/pkg/lock"
	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/version"
)

// testSource serves a fixed catalog with lazily resolved details.
type testSource struct {
	packages []metadata.JdkMetadata
	details  map[string]*metadata.PackageDetails
}

func (s *testSource) ID() string        { return "test" }
func (s *testSource) Name() string      { return "Test Source" }
func (s *testSource) IsAvailable() bool { return true }

func (s *testSource) FetchAll() ([]metadata.JdkMetadata, error) {
	return s.packages, nil
}

func (s *testSource) FetchDistribution(dist string) ([]metadata.JdkMetadata, error) {
	var out []metadata.JdkMetadata
	for _, p := range s.packages {
		if p.Distribution == dist {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *testSource) FetchPackageDetails(id string) (*metadata.PackageDetails, error) {
	d, ok := s.details[id]
	if !ok {
		return nil, errors.Errorf("package %q not found", id)
	}
	return d, nil
}

func (s *testSource) LastUpdated() *time.Time { return nil }

// buildJdkArchive builds a tar.gz resembling a real JDK archive with a
// single top-level directory.
func buildJdkArchive(t *testing.T, topDir string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	writeDir := func(name string) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Typeflag: tar.TypeDir, Mode: 0755,
		}))
	}
	writeFile := func(name, body string, mode int64) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Typeflag: tar.TypeReg, Mode: mode, Size: int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}

	writeDir(topDir + "/")
	writeDir(topDir + "/bin/")
	writeFile(topDir+"/bin/"+platform.JavaExecutable(), "#!/bin/sh\necho java\n", 0755)
	writeFile(topDir+"/release", "JAVA_VERSION=\"21.0.5\"\n", 0644)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type testEnv struct {
	cfg       *config.KopiConfig
	installer *Installer
	repo      *storage.Repository
	archive   []byte
	source    *testSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	archiveBytes := buildJdkArchive(t, "jdk-21.0.5+11")
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archiveBytes)
	}))
	t.Cleanup(server.Close)

	prev := download.Transport
	download.Transport = server.Client().Transport
	t.Cleanup(func() { download.Transport = prev })

	sum := sha256.Sum256(archiveBytes)

	v, err := version.Parse("21.0.5+11")
	require.NoError(t, err)
	pkg := metadata.JdkMetadata{
		ID:                  "pkg-21",
		Distribution:        "temurin",
		Version:             v,
		DistributionVersion: v,
		Architecture:        platform.CurrentArch(),
		OperatingSystem:     platform.CurrentOS(),
		PackageType:         "jdk",
		ArchiveType:         "tar.gz",
		Size:                int64(len(archiveBytes)),
		LibCType:            platform.CurrentLibC(),
		TermOfSupport:       "lts",
		ReleaseStatus:       "ga",
	}

	source := &testSource{
		packages: []metadata.JdkMetadata{pkg},
		details: map[string]*metadata.PackageDetails{
			"pkg-21": {
				DownloadURL:  server.URL + "/jdk-21.0.5+11.tar.gz",
				Checksum:     hex.EncodeToString(sum[:]),
				ChecksumType: metadata.ChecksumSHA256,
			},
		},
	}

	cfg, err := config.NewWithHome(t.TempDir())
	require.NoError(t, err)

	provider := metadata.NewProvider(source)
	repo := storage.NewRepository(cfg)

	return &testEnv{
		cfg:       cfg,
		installer: New(cfg, provider, repo),
		repo:      repo,
		archive:   archiveBytes,
		source:    source,
	}
}

func mustRequest(t *testing.T, s string) version.Request {
	t.Helper()
	req, err := version.ParseRequest(s)
	require.NoError(t, err)
	return req
}

func assertNoStagingResidue(t *testing.T, cfg *config.KopiConfig) {
	t.Helper()
	entries, err := os.ReadDir(cfg.TempInstallDir())
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be empty")
}

func TestInstallEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.installer.Install(mustRequest(t, "21"), Options{})
	require.NoError(t, err)

	slugPath := filepath.Join(env.cfg.JdksDir(), "temurin-21.0.5+11")
	assert.Equal(t, slugPath, result.Installed.Path)
	assert.FileExists(t, filepath.Join(slugPath, "bin", platform.JavaExecutable()))
	assert.FileExists(t, filepath.Join(slugPath, "release"))

	// The wrapping jdk-21.0.5+11 directory was flattened away.
	assert.NoDirExists(t, filepath.Join(slugPath, "jdk-21.0.5+11"))

	// Sidecar records package, platform triple and layout.
	meta, err := env.repo.LoadMetadata(&result.Installed)
	require.NoError(t, err)
	assert.Equal(t, "pkg-21", meta.Package.ID)
	assert.Equal(t, platform.Triple(), meta.InstallationMetadata.Platform)
	assert.Equal(t, "nested", meta.InstallationMetadata.StructureType)
	assert.Equal(t, "", meta.InstallationMetadata.JavaHomeSuffix)

	assert.Equal(t, slugPath, result.JavaHome)
	assertNoStagingResidue(t, env.cfg)
}

func TestInstallDuplicateWithoutForce(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.installer.Install(mustRequest(t, "21"), Options{})
	require.NoError(t, err)

	_, err = env.installer.Install(mustRequest(t, "21"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestInstallForceReplaces(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.installer.Install(mustRequest(t, "21"), Options{})
	require.NoError(t, err)

	marker := filepath.Join(first.Installed.Path, "marker")
	require.NoError(t, os.WriteFile(marker, []byte("old"), 0644))

	second, err := env.installer.Install(mustRequest(t, "21"), Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, first.Installed.Path, second.Installed.Path)
	assert.NoFileExists(t, marker, "old install content replaced")
	assert.FileExists(t, filepath.Join(second.Installed.Path, "bin", platform.JavaExecutable()))
	assertNoStagingResidue(t, env.cfg)

	entries, err := os.ReadDir(env.cfg.JdksDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".removing", "replaced install cleaned up")
	}
}

func TestInstallChecksumMismatchCleansUp(t *testing.T) {
	env := newTestEnv(t)
	env.source.details["pkg-21"].Checksum = "0000000000000000000000000000000000000000000000000000000000000000"

	_, err := env.installer.Install(mustRequest(t, "21"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, download.ErrChecksumMismatch)

	assert.NoDirExists(t, filepath.Join(env.cfg.JdksDir(), "temurin-21.0.5+11"))
	assertNoStagingResidue(t, env.cfg)
}

func TestInstallNoMatchingPackage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.installer.Install(mustRequest(t, "99"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatchingPackage)
}

func TestInstallMissingJavaBinaryFails(t *testing.T) {
	env := newTestEnv(t)

	// Replace the served archive with one lacking bin/java.
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "jdk/", Typeflag: tar.TypeDir, Mode: 0755,
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "jdk/readme", Typeflag: tar.TypeReg, Mode: 0644, Size: 4,
	}))
	_, err := tw.Write([]byte("text"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	broken := buf.Bytes()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(broken)
	}))
	defer server.Close()
	download.Transport = server.Client().Transport

	sum := sha256.Sum256(broken)
	env.source.details["pkg-21"] = &metadata.PackageDetails{
		DownloadURL:  server.URL + "/jdk.tar.gz",
		Checksum:     hex.EncodeToString(sum[:]),
		ChecksumType: metadata.ChecksumSHA256,
	}

	_, err = env.installer.Install(mustRequest(t, "21"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingJavaBinary)

	assert.NoDirExists(t, filepath.Join(env.cfg.JdksDir(), "temurin-21.0.5+11"))
	assertNoStagingResidue(t, env.cfg)
}

func TestConcurrentInstallsSameSlug(t *testing.T) {
	env := newTestEnv(t)

	// Warm the metadata cache so the concurrent installs race on the
	// jdks tree, not on the initial catalog refresh.
	_, err := env.installer.Install(mustRequest(t, "21"), Options{DryRun: true})
	require.NoError(t, err)

	const n = 3
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = env.installer.Install(mustRequest(t, "21"), Options{})
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		ok := errors.Is(err, storage.ErrAlreadyExists) || errors.Is(err, lock.ErrLockBusy)
		assert.True(t, ok, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes, "exactly one concurrent install succeeds")

	assert.FileExists(t, filepath.Join(
		env.cfg.JdksDir(), "temurin-21.0.5+11", "bin", platform.JavaExecutable()))
	assertNoStagingResidue(t, env.cfg)
}

func TestDryRunSelectsWithoutInstalling(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.installer.Install(mustRequest(t, "21"), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "pkg-21", result.Package.ID)
	assert.NoDirExists(t, filepath.Join(env.cfg.JdksDir(), "temurin-21.0.5+11"))
}

func TestSelectPackagePreferences(t *testing.T) {
	v, err := version.Parse("21.0.1")
	require.NoError(t, err)

	base := metadata.JdkMetadata{
		Distribution:        "temurin",
		Version:             v,
		DistributionVersion: v,
		Architecture:        platform.CurrentArch(),
		OperatingSystem:     platform.CurrentOS(),
		ArchiveType:         "tar.gz",
	}

	jre := base
	jre.ID = "jre"
	jre.PackageType = "jre"
	jdk := base
	jdk.ID = "jdk"
	jdk.PackageType = "jdk"
	otherArch := base
	otherArch.ID = "other-arch"
	otherArch.PackageType = "jdk"
	otherArch.Architecture = "sparcv9"

	// jdk preferred over jre when the request has no package type.
	selected := selectFrom([]metadata.JdkMetadata{jre, jdk, otherArch}, version.Request{VersionPattern: "21"})
	require.NotNil(t, selected)
	assert.Equal(t, "jdk", selected.ID)

	// Explicit jre restricts.
	selected = selectFrom([]metadata.JdkMetadata{jre, jdk},
		version.Request{VersionPattern: "21", PackageType: version.PackageTypeJre})
	require.NotNil(t, selected)
	assert.Equal(t, "jre", selected.ID)

	// Foreign platforms never match.
	selected = selectFrom([]metadata.JdkMetadata{otherArch}, version.Request{VersionPattern: "21"})
	assert.Nil(t, selected)
}
