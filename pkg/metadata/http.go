package metadata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/util"
)

// ErrAlreadyComplete is returned by sources whose records always carry
// the full set of fields.
var ErrAlreadyComplete = errors.New("package records from this source are already complete")

// HTTPSource reads a hosted metadata index: <base>/index.json plus the
// per-platform distribution files it references.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client

	index *IndexFile
}

// NewHTTPSource creates an HTTP index source for the given base URL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *HTTPSource) ID() string   { return "http" }
func (s *HTTPSource) Name() string { return "HTTP Metadata Index" }

// IsAvailable probes index.json with a HEAD request.
func (s *HTTPSource) IsAvailable() bool {
	req, err := http.NewRequest(http.MethodHead, s.baseURL+"/index.json", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *HTTPSource) fetchIndex() (*IndexFile, error) {
	if s.index != nil {
		return s.index, nil
	}

	resp, err := s.httpClient.Get(s.baseURL + "/index.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch metadata index")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("metadata index request failed with status: %s", resp.Status)
	}

	var index IndexFile
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, errors.Wrap(err, "failed to parse metadata index")
	}

	s.index = &index
	return s.index, nil
}

// FetchAll fetches every index file matching the current platform and
// unions the results. Individual file failures are skipped with a
// warning.
func (s *HTTPSource) FetchAll() ([]JdkMetadata, error) {
	index, err := s.fetchIndex()
	if err != nil {
		return nil, err
	}

	osName := platform.CurrentOS()
	arch := platform.CurrentArch()
	libc := platform.CurrentLibC()

	var all []JdkMetadata
	for _, entry := range index.Files {
		if !entry.MatchesPlatform(osName, arch, libc) {
			continue
		}
		packages, err := s.fetchFile(entry.Path)
		if err != nil {
			util.LogVerbose("Skipping metadata file %s: %v", entry.Path, err)
			fmt.Printf("  Warning: failed to load metadata file %s: %v\n", entry.Path, err)
			continue
		}
		all = append(all, packages...)
	}
	return all, nil
}

func (s *HTTPSource) fetchFile(path string) ([]JdkMetadata, error) {
	resp, err := s.httpClient.Get(s.baseURL + "/" + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("request failed with status: %s", resp.Status)
	}

	var packages []JdkMetadata
	if err := json.NewDecoder(resp.Body).Decode(&packages); err != nil {
		return nil, errors.Wrap(err, "failed to parse metadata file")
	}
	return packages, nil
}

func (s *HTTPSource) FetchDistribution(distribution string) ([]JdkMetadata, error) {
	all, err := s.FetchAll()
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

// FetchPackageDetails always fails: hosted index entries include every
// field already.
func (s *HTTPSource) FetchPackageDetails(string) (*PackageDetails, error) {
	return nil, ErrAlreadyComplete
}

func (s *HTTPSource) LastUpdated() *time.Time {
	index, err := s.fetchIndex()
	if err != nil {
		return nil
	}
	updated := index.Updated
	return &updated
}
