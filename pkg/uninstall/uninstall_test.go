package uninstall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/storage"
)

func testHandler(t *testing.T) (*Handler, *storage.Repository, *config.KopiConfig) {
	t.Helper()
	cfg, err := config.NewWithHome(t.TempDir())
	require.NoError(t, err)
	repo := storage.NewRepository(cfg)
	return New(cfg, repo), repo, cfg
}

func installFake(t *testing.T, cfg *config.KopiConfig, slug string) string {
	t.Helper()
	binDir := filepath.Join(cfg.JdksDir(), slug, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(binDir, platform.JavaExecutable()), []byte("#!/bin/sh\n"), 0755))
	// Matching sidecar.
	sidecar := filepath.Join(cfg.JdksDir(), slug+".meta.json")
	require.NoError(t, os.WriteFile(sidecar, []byte("{}"), 0644))
	return filepath.Join(cfg.JdksDir(), slug)
}

func TestUninstallSingle(t *testing.T) {
	h, _, cfg := testHandler(t)
	path := installFake(t, cfg, "temurin-21.0.1")

	removal, err := h.Uninstall("temurin@21.0.1", Options{})
	require.NoError(t, err)
	assert.Equal(t, "temurin-21.0.1", removal.Jdk.Slug())
	assert.Positive(t, removal.Size)

	assert.NoDirExists(t, path)
	assert.NoFileExists(t, filepath.Join(cfg.JdksDir(), "temurin-21.0.1.meta.json"))

	// No .removing residue.
	entries, err := os.ReadDir(cfg.JdksDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".removing")
	}
}

func TestUninstallNotInstalled(t *testing.T) {
	h, _, _ := testHandler(t)

	_, err := h.Uninstall("21", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInstalled)
}

// Scenario: temurin-21.0.1, temurin-21.0.2 and corretto-21.0.1 are
// installed; "uninstall 21" must list all three and remove nothing.
func TestUninstallAmbiguous(t *testing.T) {
	h, _, cfg := testHandler(t)
	a := installFake(t, cfg, "temurin-21.0.1")
	b := installFake(t, cfg, "temurin-21.0.2")
	c := installFake(t, cfg, "corretto-21.0.1")

	_, err := h.Uninstall("21", Options{})
	require.Error(t, err)

	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 3)
	assert.Contains(t, err.Error(), "temurin@21.0.1")
	assert.Contains(t, err.Error(), "corretto@21.0.1")

	assert.DirExists(t, a)
	assert.DirExists(t, b)
	assert.DirExists(t, c)

	// Disambiguated spec removes exactly one.
	removal, err := h.Uninstall("temurin@21.0.1", Options{})
	require.NoError(t, err)
	assert.Equal(t, "temurin-21.0.1", removal.Jdk.Slug())
	assert.NoDirExists(t, a)
	assert.DirExists(t, b)
	assert.DirExists(t, c)
}

func TestUninstallDryRun(t *testing.T) {
	h, _, cfg := testHandler(t)
	path := installFake(t, cfg, "temurin-21.0.1")

	removal, err := h.Uninstall("21", Options{DryRun: true})
	require.NoError(t, err)
	assert.Positive(t, removal.Size)
	assert.DirExists(t, path)
}

func TestBatchSelectByDistribution(t *testing.T) {
	h, _, cfg := testHandler(t)
	installFake(t, cfg, "temurin-21.0.1")
	installFake(t, cfg, "temurin-17.0.9")
	installFake(t, cfg, "corretto-21.0.1")

	jdks, err := h.SelectBatch("temurin")
	require.NoError(t, err)
	assert.Len(t, jdks, 2)

	jdks, err = h.SelectBatch("21")
	require.NoError(t, err)
	assert.Len(t, jdks, 2)

	jdks, err = h.SelectBatch("")
	require.NoError(t, err)
	assert.Len(t, jdks, 3)

	_, err = h.SelectBatch("zulu")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

// Removing {A, B, C} with B failing leaves A and C removed and B intact.
func TestBatchFailureIsolation(t *testing.T) {
	h, _, cfg := testHandler(t)
	a := installFake(t, cfg, "temurin-21.0.1")
	b := installFake(t, cfg, "temurin-21.0.2")
	c := installFake(t, cfg, "temurin-21.0.3")

	jdks, err := h.SelectBatch("temurin")
	require.NoError(t, err)
	require.Len(t, jdks, 3)

	// Sabotage B: its directory vanishes between listing and removal,
	// so the rename-away step fails.
	require.NoError(t, os.RemoveAll(b))

	result, err := h.UninstallBatch(jdks, Options{})
	require.NoError(t, err, "batch succeeds when at least one entry is removed")

	assert.Equal(t, 2, result.Succeeded())
	assert.Equal(t, 1, result.Failed())
	assert.NoDirExists(t, a)
	assert.NoDirExists(t, c)

	for _, item := range result.Items {
		if item.Jdk.Slug() == "temurin-21.0.2" {
			assert.Error(t, item.Err)
		} else {
			assert.NoError(t, item.Err)
		}
	}
}

func TestBatchAllFail(t *testing.T) {
	h, _, cfg := testHandler(t)
	a := installFake(t, cfg, "temurin-21.0.1")
	jdks, err := h.SelectBatch("temurin")
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(a))

	result, err := h.UninstallBatch(jdks, Options{})
	require.Error(t, err)
	assert.Equal(t, 0, result.Succeeded())
}

func TestCleanupOrphans(t *testing.T) {
	h, _, cfg := testHandler(t)
	jdksDir := cfg.JdksDir()

	// Healthy install stays.
	healthy := installFake(t, cfg, "temurin-21.0.1")

	// Interrupted removal.
	removing := filepath.Join(jdksDir, ".zulu-8.removing")
	require.NoError(t, os.MkdirAll(removing, 0755))

	// Crashed install staging.
	staging := filepath.Join(jdksDir, ".tmp", "install-abc123")
	require.NoError(t, os.MkdirAll(staging, 0755))

	// Partial install without a java binary.
	partial := filepath.Join(jdksDir, "corretto-17.0.9")
	require.NoError(t, os.MkdirAll(partial, 0755))

	// Orphan sidecar.
	orphanSidecar := filepath.Join(jdksDir, "liberica-11.0.2.meta.json")
	require.NoError(t, os.WriteFile(orphanSidecar, []byte("{}"), 0644))

	result, err := h.CleanupOrphans()
	require.NoError(t, err)
	assert.Len(t, result.RemovedPaths, 4)

	assert.DirExists(t, healthy)
	assert.NoDirExists(t, removing)
	assert.NoDirExists(t, staging)
	assert.NoDirExists(t, partial)
	assert.NoFileExists(t, orphanSidecar)

	// A healthy install's sidecar is untouched.
	assert.FileExists(t, filepath.Join(jdksDir, "temurin-21.0.1.meta.json"))
}

func TestCleanupOrphansEmptyHome(t *testing.T) {
	h, _, _ := testHandler(t)
	result, err := h.CleanupOrphans()
	require.NoError(t, err)
	assert.Empty(t, result.RemovedPaths)
}
