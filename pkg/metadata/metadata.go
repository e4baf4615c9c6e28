// Package metadata provides the JDK package catalog: the package
// descriptor model, the polymorphic metadata sources and the
// ordered-fallback provider that composes them.
package metadata

import (
	"github.com/kopi-vm/kopi/pkg/version"
)

// ChecksumType names the hash algorithm of a package checksum.
type ChecksumType string

const (
	ChecksumSHA256 ChecksumType = "sha256"
	ChecksumSHA512 ChecksumType = "sha512"
	ChecksumSHA1   ChecksumType = "sha1"
	ChecksumMD5    ChecksumType = "md5"
)

// JdkMetadata describes a single downloadable JDK artifact. Records from
// bulk list endpoints may be partial: the download URL and checksum are
// lazy fields populated on demand via Provider.EnsureComplete.
type JdkMetadata struct {
	ID                  string          `json:"id"`
	Distribution        string          `json:"distribution"`
	Version             version.Version `json:"version"`
	DistributionVersion version.Version `json:"distribution_version"`
	Architecture        string          `json:"architecture"`
	OperatingSystem     string          `json:"operating_system"`
	PackageType         string          `json:"package_type"`
	ArchiveType         string          `json:"archive_type"`

	// Lazy fields, absent until the package record is completed.
	DownloadURL  string       `json:"download_url,omitempty"`
	Checksum     string       `json:"checksum,omitempty"`
	ChecksumType ChecksumType `json:"checksum_type,omitempty"`

	Size                 int64  `json:"size"`
	LibCType             string `json:"lib_c_type,omitempty"`
	JavaFXBundled        bool   `json:"javafx_bundled"`
	TermOfSupport        string `json:"term_of_support,omitempty"`
	ReleaseStatus        string `json:"release_status,omitempty"`
	LatestBuildAvailable *bool  `json:"latest_build_available,omitempty"`
}

// IsComplete reports whether the record carries everything needed for
// installation. Only the download URL is required; a missing checksum
// downgrades verification to a warning.
func (m *JdkMetadata) IsComplete() bool {
	return m.DownloadURL != ""
}

// PackageDetails carries the lazily resolved fields of a package.
type PackageDetails struct {
	DownloadURL  string
	Checksum     string
	ChecksumType ChecksumType
}
