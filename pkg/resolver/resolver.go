// Package resolver answers "which JDK version does the user want right
// now" from layered sources: environment variable, project version
// files walking up from the working directory, then the global default.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/util"
	"github.com/kopi-vm/kopi/pkg/version"
)

const (
	// EnvJavaVersion is the highest-priority resolution layer.
	EnvJavaVersion = "KOPI_JAVA_VERSION"

	kopiVersionFile = ".kopi-version"
	javaVersionFile = ".java-version"
)

// SourceKind tags where a resolved request came from.
type SourceKind int

const (
	SourceEnvironment SourceKind = iota
	SourceProjectFile
	SourceGlobalDefault
)

func (k SourceKind) String() string {
	switch k {
	case SourceEnvironment:
		return "environment"
	case SourceProjectFile:
		return "project file"
	case SourceGlobalDefault:
		return "global default"
	default:
		return "unknown"
	}
}

// Resolved is a version request plus its provenance. Origin holds the
// environment variable value or the absolute file path.
type Resolved struct {
	Request version.Request
	Source  SourceKind
	Origin  string
}

// NoVersionError reports that no layer produced a version, carrying the
// directories searched for diagnostics.
type NoVersionError struct {
	SearchedPaths []string
}

func (e *NoVersionError) Error() string {
	return fmt.Sprintf(
		"no local version configured (searched %d directories); set one with 'kopi local' or 'kopi global'",
		len(e.SearchedPaths))
}

// Resolver resolves version requests starting from a working directory.
type Resolver struct {
	cfg        *config.KopiConfig
	currentDir string
}

// New creates a resolver rooted at the process working directory.
func New(cfg *config.KopiConfig) *Resolver {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return &Resolver{cfg: cfg, currentDir: dir}
}

// NewWithDir creates a resolver rooted at an explicit directory.
func NewWithDir(cfg *config.KopiConfig, dir string) *Resolver {
	return &Resolver{cfg: cfg, currentDir: dir}
}

// Resolve applies the layers in order, first hit wins.
func (r *Resolver) Resolve() (*Resolved, error) {
	if env := os.Getenv(EnvJavaVersion); env != "" {
		util.LogVerbose("Using version from %s: %s", EnvJavaVersion, env)
		req, err := version.ParseRequest(env)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", EnvJavaVersion)
		}
		return &Resolved{Request: req, Source: SourceEnvironment, Origin: env}, nil
	}

	resolved, searched, err := r.searchVersionFiles()
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}

	if global, err := r.globalDefault(); err != nil {
		return nil, err
	} else if global != nil {
		util.LogVerbose("Using global default version from %s", global.Origin)
		return global, nil
	}

	return nil, &NoVersionError{SearchedPaths: searched}
}

// searchVersionFiles walks from the current directory toward the root.
// In each directory .kopi-version wins over .java-version.
func (r *Resolver) searchVersionFiles() (*Resolved, []string, error) {
	current, err := filepath.Abs(r.currentDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to resolve working directory")
	}

	var searched []string
	for {
		searched = append(searched, current)

		kopiPath := filepath.Join(current, kopiVersionFile)
		if fileExists(kopiPath) {
			util.LogVerbose("Found %s at %s", kopiVersionFile, kopiPath)
			content, err := readVersionFile(kopiPath)
			if err != nil {
				return nil, nil, err
			}
			req, err := version.ParseRequest(content)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "invalid version in %s", kopiPath)
			}
			return &Resolved{Request: req, Source: SourceProjectFile, Origin: kopiPath}, searched, nil
		}

		javaPath := filepath.Join(current, javaVersionFile)
		if fileExists(javaPath) {
			util.LogVerbose("Found %s at %s", javaVersionFile, javaPath)
			content, err := readVersionFile(javaPath)
			if err != nil {
				return nil, nil, err
			}
			// .java-version carries a bare pattern, never a distribution.
			return &Resolved{
				Request: version.Request{VersionPattern: content},
				Source:  SourceProjectFile,
				Origin:  javaPath,
			}, searched, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil, searched, nil
}

func (r *Resolver) globalDefault() (*Resolved, error) {
	for _, path := range []string{r.cfg.GlobalVersionPath(), r.cfg.LegacyGlobalVersionPath()} {
		if !fileExists(path) {
			continue
		}
		content, err := readVersionFile(path)
		if err != nil {
			return nil, err
		}
		req, err := version.ParseRequest(content)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid version in %s", path)
		}
		return &Resolved{Request: req, Source: SourceGlobalDefault, Origin: path}, nil
	}
	return nil, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readVersionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", errors.Errorf("version file %s is empty", path)
	}
	return content, nil
}
