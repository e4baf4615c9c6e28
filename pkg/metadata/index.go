package metadata

import (
	"encoding/json"
	"time"
)

// IndexFile is the top-level index.json of hosted and bundled metadata.
type IndexFile struct {
	Version         int              `json:"version"`
	Updated         time.Time        `json:"updated"`
	Files           []IndexFileEntry `json:"files"`
	GeneratorConfig json.RawMessage  `json:"generator_config,omitempty"`
}

// IndexFileEntry references one per-platform distribution file.
type IndexFileEntry struct {
	Path             string     `json:"path"`
	Distribution     string     `json:"distribution"`
	Architectures    []string   `json:"architectures"`
	OperatingSystems []string   `json:"operating_systems"`
	LibCTypes        []string   `json:"lib_c_types"`
	Size             int64      `json:"size"`
	Checksum         string     `json:"checksum,omitempty"`
	LastModified     *time.Time `json:"last_modified,omitempty"`
}

// MatchesPlatform reports whether the entry's declared platforms include
// the given host. A nil lib_c_types list matches any libc.
func (e *IndexFileEntry) MatchesPlatform(osName, arch, libc string) bool {
	if !containsString(e.OperatingSystems, osName) {
		return false
	}
	if !containsString(e.Architectures, arch) {
		return false
	}
	if libc != "" && e.LibCTypes != nil && !containsString(e.LibCTypes, libc) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
