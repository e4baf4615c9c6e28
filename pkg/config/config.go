// Package config resolves the kopi home directory and loads the
// optional config.toml settings file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/util"
)

const (
	kopiDirName    = ".kopi"
	configFileName = "config.toml"

	// EnvKopiHome overrides the home directory; relative values are
	// ignored.
	EnvKopiHome = "KOPI_HOME"
)

// StorageSettings controls the installation storage.
type StorageSettings struct {
	MinDiskSpaceMB uint64 `toml:"min_disk_space_mb"`
}

// CacheSettings controls the metadata cache staleness policy.
type CacheSettings struct {
	MaxAgeHours int `toml:"max_age_hours"`
}

// LockSettings controls cross-process install locking.
type LockSettings struct {
	TimeoutSecs int `toml:"timeout_secs"`
}

// DownloadSettings controls the download pipeline.
type DownloadSettings struct {
	TimeoutSecs          int  `toml:"timeout_secs"`
	EnforceTrustedDomains bool `toml:"enforce_trusted_domains"`
}

// MetadataSettings controls metadata source composition.
type MetadataSettings struct {
	// Sources lists source ids in fallback order. Recognized ids:
	// "local", "http", "foojay".
	Sources []string `toml:"sources"`
	// HTTPBaseURL is the base URL of the hosted metadata index.
	HTTPBaseURL string `toml:"http_base_url"`
	// LocalDirectory holds bundled metadata; relative paths resolve
	// under the kopi home.
	LocalDirectory string `toml:"local_directory"`
	// FoojayBaseURL overrides the Disco API base, mainly for tests.
	FoojayBaseURL string `toml:"foojay_base_url"`
}

// Settings is the config.toml schema. Every field has a default; the
// file itself is optional.
type Settings struct {
	Storage   StorageSettings  `toml:"storage"`
	Cache     CacheSettings    `toml:"cache"`
	Locking   LockSettings     `toml:"locking"`
	Downloads DownloadSettings `toml:"downloads"`
	Metadata  MetadataSettings `toml:"metadata"`
}

// KopiConfig is the per-invocation configuration: the resolved home
// directory plus settings. It is constructed fresh for every command and
// never cached in a process-wide global.
type KopiConfig struct {
	home     string
	Settings Settings
}

func defaultSettings() Settings {
	return Settings{
		Storage:   StorageSettings{MinDiskSpaceMB: 500},
		Cache:     CacheSettings{MaxAgeHours: 720},
		Locking:   LockSettings{TimeoutSecs: 600},
		Downloads: DownloadSettings{TimeoutSecs: 600},
		Metadata: MetadataSettings{
			Sources: []string{"foojay"},
		},
	}
}

// New resolves the kopi home (KOPI_HOME when absolute, else ~/.kopi) and
// loads config.toml when present.
func New() (*KopiConfig, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}
	return NewWithHome(home)
}

// NewWithHome builds a configuration rooted at an explicit home
// directory, loading its config.toml when present.
func NewWithHome(home string) (*KopiConfig, error) {
	cfg := &KopiConfig{
		home:     home,
		Settings: defaultSettings(),
	}

	configPath := filepath.Join(home, configFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}

	if err := toml.Unmarshal(data, &cfg.Settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	util.LogVerbose("Loaded settings from %s", configPath)

	return cfg, nil
}

func resolveHome() (string, error) {
	if env := os.Getenv(EnvKopiHome); env != "" {
		if filepath.IsAbs(env) {
			return env, nil
		}
		util.LogVerbose("Ignoring relative %s value: %s", EnvKopiHome, env)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to determine home directory")
	}
	return filepath.Join(home, kopiDirName), nil
}

// KopiHome returns the resolved home directory.
func (c *KopiConfig) KopiHome() string {
	return c.home
}

// JdksDir returns the installation root.
func (c *KopiConfig) JdksDir() string {
	return filepath.Join(c.home, "jdks")
}

// TempInstallDir returns the staging parent under jdks.
func (c *KopiConfig) TempInstallDir() string {
	return filepath.Join(c.JdksDir(), ".tmp")
}

// CachePath returns the metadata cache file path.
func (c *KopiConfig) CachePath() string {
	return filepath.Join(c.home, "cache", "metadata.json")
}

// LocksDir returns the advisory lock directory.
func (c *KopiConfig) LocksDir() string {
	return filepath.Join(c.home, "locks")
}

// GlobalVersionPath returns the authoritative global default file.
func (c *KopiConfig) GlobalVersionPath() string {
	return filepath.Join(c.home, "version")
}

// LegacyGlobalVersionPath returns the legacy global default file.
func (c *KopiConfig) LegacyGlobalVersionPath() string {
	return filepath.Join(c.home, "default-version")
}

// LocalMetadataDir returns the bundled metadata directory, resolving
// relative settings under the kopi home.
func (c *KopiConfig) LocalMetadataDir() string {
	dir := c.Settings.Metadata.LocalDirectory
	if dir == "" {
		dir = "bundled-metadata"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.home, dir)
	}
	return dir
}

// CacheMaxAge returns the configured staleness threshold.
func (c *KopiConfig) CacheMaxAge() time.Duration {
	return time.Duration(c.Settings.Cache.MaxAgeHours) * time.Hour
}

// LockTimeout returns the configured lock acquisition timeout.
func (c *KopiConfig) LockTimeout() time.Duration {
	return time.Duration(c.Settings.Locking.TimeoutSecs) * time.Second
}

// DownloadTimeout returns the configured download timeout.
func (c *KopiConfig) DownloadTimeout() time.Duration {
	return time.Duration(c.Settings.Downloads.TimeoutSecs) * time.Second
}
