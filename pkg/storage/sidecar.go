package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/metadata"
	"github.com/kopi-vm/kopi/pkg/platform"
)

const sidecarSchemaVersion = 1

// InstallationMetadata records how an archive mapped onto the slug
// directory.
type InstallationMetadata struct {
	// JavaHomeSuffix is the relative path from the slug root to the
	// directory containing bin/, empty for standard archives.
	JavaHomeSuffix string `json:"java_home_suffix"`
	// StructureType is "direct" or "nested".
	StructureType string `json:"structure_type"`
	// Platform is the install's platform triple, <os>_<arch>[_<libc>].
	Platform string `json:"platform"`
	// MetadataVersion is the sidecar schema version.
	MetadataVersion int `json:"metadata_version"`
}

// InstalledMetadata is the jdks/<slug>.meta.json sidecar payload.
type InstalledMetadata struct {
	Package              metadata.JdkMetadata `json:"package"`
	InstallationMetadata InstallationMetadata `json:"installation_metadata"`
}

// NewInstallationMetadata stamps the current platform and schema
// version.
func NewInstallationMetadata(javaHomeSuffix, structureType string) InstallationMetadata {
	return InstallationMetadata{
		JavaHomeSuffix:  javaHomeSuffix,
		StructureType:   structureType,
		Platform:        platform.Triple(),
		MetadataVersion: sidecarSchemaVersion,
	}
}

// SidecarPath returns jdks/<slug>.meta.json for an installation.
func (r *Repository) SidecarPath(jdk *InstalledJdk) string {
	return filepath.Join(r.cfg.JdksDir(), jdk.Slug()+".meta.json")
}

// SaveMetadata writes the install sidecar.
func (r *Repository) SaveMetadata(jdk *InstalledJdk, meta *InstalledMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize installation metadata")
	}
	path := r.SidecarPath(jdk)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// LoadMetadata reads the install sidecar back.
func (r *Repository) LoadMetadata(jdk *InstalledJdk) (*InstalledMetadata, error) {
	path := r.SidecarPath(jdk)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var meta InstalledMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return &meta, nil
}

// RemoveSidecar deletes the sidecar if present.
func (r *Repository) RemoveSidecar(jdk *InstalledJdk) error {
	err := os.Remove(r.SidecarPath(jdk))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// JavaHome resolves the effective JAVA_HOME of an installation, using
// the sidecar suffix when available and probing the directory layout
// otherwise.
func (r *Repository) JavaHome(jdk *InstalledJdk) (string, error) {
	if meta, err := r.LoadMetadata(jdk); err == nil {
		home := jdk.Path
		if meta.InstallationMetadata.JavaHomeSuffix != "" {
			home = filepath.Join(home, filepath.FromSlash(meta.InstallationMetadata.JavaHomeSuffix))
		}
		if platform.IsExecutable(platform.JavaBinaryPath(home)) {
			return home, nil
		}
	}
	return ProbeJavaHome(jdk.Path)
}

// ProbeJavaHome locates the directory containing bin/java under an
// install root: the root itself, the macOS Contents/Home layout, or one
// nested directory deep.
func ProbeJavaHome(root string) (string, error) {
	candidates := []string{
		root,
		filepath.Join(root, "Contents", "Home"),
	}
	if entries, err := os.ReadDir(root); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			sub := filepath.Join(root, entry.Name())
			candidates = append(candidates, sub, filepath.Join(sub, "Contents", "Home"))
		}
	}

	for _, candidate := range candidates {
		if platform.IsExecutable(platform.JavaBinaryPath(candidate)) {
			return candidate, nil
		}
	}
	return "", errors.Errorf("java executable not found under %s", root)
}
