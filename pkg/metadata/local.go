package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/util"
)

// LocalSource reads bundled metadata from a directory laid out like the
// hosted index: index.json plus <os>-<arch>[-<libc>]/<distribution>.json
// files. Used for offline operation.
type LocalSource struct {
	directory string
}

// NewLocalSource creates a local directory source.
func NewLocalSource(directory string) *LocalSource {
	return &LocalSource{directory: directory}
}

func (s *LocalSource) ID() string   { return "local" }
func (s *LocalSource) Name() string { return "Local Directory" }

// IsAvailable checks for index.json in the directory.
func (s *LocalSource) IsAvailable() bool {
	_, err := os.Stat(filepath.Join(s.directory, "index.json"))
	return err == nil
}

func (s *LocalSource) readIndex() (*IndexFile, error) {
	indexPath := filepath.Join(s.directory, "index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, errors.Wrapf(err, "bundled metadata not found at %s", indexPath)
	}

	var index IndexFile
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", indexPath)
	}
	return &index, nil
}

func (s *LocalSource) readMetadata() ([]JdkMetadata, error) {
	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}

	// Bundled metadata is organized by platform directory; only the
	// current platform's files are read.
	platformPrefix := platform.Directory() + "/"

	var all []JdkMetadata
	for _, entry := range index.Files {
		if !strings.HasPrefix(entry.Path, platformPrefix) {
			continue
		}
		filePath := filepath.Join(s.directory, filepath.FromSlash(entry.Path))
		data, err := os.ReadFile(filePath)
		if err != nil {
			util.LogVerbose("Metadata file not found: %s", filePath)
			continue
		}
		var packages []JdkMetadata
		if err := json.Unmarshal(data, &packages); err != nil {
			util.LogVerbose("Failed to parse metadata file %s: %v", filePath, err)
			continue
		}
		all = append(all, packages...)
	}
	return all, nil
}

func (s *LocalSource) FetchAll() ([]JdkMetadata, error) {
	return s.readMetadata()
}

func (s *LocalSource) FetchDistribution(distribution string) ([]JdkMetadata, error) {
	all, err := s.readMetadata()
	if err != nil {
		return nil, err
	}
	var filtered []JdkMetadata
	for _, m := range all {
		if m.Distribution == distribution {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// FetchPackageDetails serves details from the already-complete bundled
// records.
func (s *LocalSource) FetchPackageDetails(id string) (*PackageDetails, error) {
	all, err := s.readMetadata()
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.ID != id {
			continue
		}
		if m.DownloadURL == "" {
			return nil, errors.Errorf("download URL not found for package %q", id)
		}
		return &PackageDetails{
			DownloadURL:  m.DownloadURL,
			Checksum:     m.Checksum,
			ChecksumType: m.ChecksumType,
		}, nil
	}
	return nil, errors.Errorf("package %q not found", id)
}

func (s *LocalSource) LastUpdated() *time.Time {
	index, err := s.readIndex()
	if err != nil {
		return nil
	}
	updated := index.Updated
	return &updated
}
