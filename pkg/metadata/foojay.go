package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/platform"
	"github.com/kopi-vm/kopi/pkg/util"
	"github.com/kopi-vm/kopi/pkg/version"
)

// FoojayAPIBase is the default Disco API base URL.
const FoojayAPIBase = "https://api.foojay.io/disco/v3.0"

// FoojaySource queries the Foojay Disco API. The list endpoint returns
// partial records in bulk; the detail endpoint is hit per package when a
// record needs completion.
type FoojaySource struct {
	baseURL    string
	httpClient *http.Client
}

// NewFoojaySource creates a Disco API source. An empty baseURL selects
// the public API.
func NewFoojaySource(baseURL string) *FoojaySource {
	if baseURL == "" {
		baseURL = FoojayAPIBase
	}
	return &FoojaySource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *FoojaySource) ID() string   { return "foojay" }
func (s *FoojaySource) Name() string { return "Foojay Disco API" }

// IsAvailable probes the distributions endpoint.
func (s *FoojaySource) IsAvailable() bool {
	req, err := http.NewRequest(http.MethodHead, s.baseURL+"/distributions", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// foojayPackage mirrors the Disco API package payload.
type foojayPackage struct {
	ID                   string `json:"id"`
	Distribution         string `json:"distribution"`
	JavaVersion          string `json:"java_version"`
	DistributionVersion  string `json:"distribution_version"`
	Architecture         string `json:"architecture"`
	OperatingSystem      string `json:"operating_system"`
	LibCType             string `json:"lib_c_type"`
	PackageType          string `json:"package_type"`
	ArchiveType          string `json:"archive_type"`
	Size                 int64  `json:"size"`
	JavaFXBundled        bool   `json:"javafx_bundled"`
	TermOfSupport        string `json:"term_of_support"`
	ReleaseStatus        string `json:"release_status"`
	LatestBuildAvailable *bool  `json:"latest_build_available"`
}

func (s *FoojaySource) FetchAll() ([]JdkMetadata, error) {
	return s.fetchPackages("")
}

func (s *FoojaySource) FetchDistribution(distribution string) ([]JdkMetadata, error) {
	return s.fetchPackages(distribution)
}

func (s *FoojaySource) fetchPackages(distribution string) ([]JdkMetadata, error) {
	query := url.Values{}
	query.Set("operating_system", platform.CurrentOS())
	query.Set("architecture", platform.CurrentArch())
	query.Set("latest", "available")
	if distribution != "" {
		query.Set("distribution", distribution)
	}

	endpoint := fmt.Sprintf("%s/packages?%s", s.baseURL, query.Encode())
	util.LogVerbose("Disco API URL: %s", endpoint)

	resp, err := s.httpClient.Get(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query Disco API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Disco API request failed with status: %s", resp.Status)
	}

	var payload struct {
		Result []foojayPackage `json:"result"`
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read Disco API response")
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to parse Disco API response")
	}

	result := make([]JdkMetadata, 0, len(payload.Result))
	for _, pkg := range payload.Result {
		converted, err := convertFoojayPackage(pkg)
		if err != nil {
			util.LogVerbose("Skipping package %s: %v", pkg.ID, err)
			continue
		}
		result = append(result, converted)
	}
	return result, nil
}

func convertFoojayPackage(pkg foojayPackage) (JdkMetadata, error) {
	featureVersion, err := version.Parse(pkg.JavaVersion)
	if err != nil {
		return JdkMetadata{}, errors.Wrapf(err, "bad java_version %q", pkg.JavaVersion)
	}
	distVersion, err := version.Parse(pkg.DistributionVersion)
	if err != nil {
		return JdkMetadata{}, errors.Wrapf(err, "bad distribution_version %q", pkg.DistributionVersion)
	}

	return JdkMetadata{
		ID:                   pkg.ID,
		Distribution:         pkg.Distribution,
		Version:              featureVersion,
		DistributionVersion:  distVersion,
		Architecture:         pkg.Architecture,
		OperatingSystem:      pkg.OperatingSystem,
		PackageType:          pkg.PackageType,
		ArchiveType:          pkg.ArchiveType,
		Size:                 pkg.Size,
		LibCType:             pkg.LibCType,
		JavaFXBundled:        pkg.JavaFXBundled,
		TermOfSupport:        pkg.TermOfSupport,
		ReleaseStatus:        pkg.ReleaseStatus,
		LatestBuildAvailable: pkg.LatestBuildAvailable,
	}, nil
}

// FetchPackageDetails hits the Disco detail endpoint for one package id.
func (s *FoojaySource) FetchPackageDetails(id string) (*PackageDetails, error) {
	endpoint := fmt.Sprintf("%s/ids/%s", s.baseURL, url.PathEscape(id))
	util.LogVerbose("Disco API URL: %s", endpoint)

	resp, err := s.httpClient.Get(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query Disco API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Disco API request failed with status: %s", resp.Status)
	}

	var payload struct {
		Result []struct {
			DirectDownloadURI string `json:"direct_download_uri"`
			Checksum          string `json:"checksum"`
			ChecksumType      string `json:"checksum_type"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to parse Disco API response")
	}
	if len(payload.Result) == 0 {
		return nil, errors.Errorf("package %s not found", id)
	}

	detail := payload.Result[0]
	if detail.DirectDownloadURI == "" {
		return nil, errors.Errorf("no download URL for package %s", id)
	}

	return &PackageDetails{
		DownloadURL:  detail.DirectDownloadURI,
		Checksum:     detail.Checksum,
		ChecksumType: ChecksumType(detail.ChecksumType),
	}, nil
}

// LastUpdated is unknown for the live API.
func (s *FoojaySource) LastUpdated() *time.Time {
	return nil
}
