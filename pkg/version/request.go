package version

import (
	"fmt"
	"strings"
)

// PackageType restricts a request to JDK or JRE packages.
type PackageType string

const (
	PackageTypeJdk PackageType = "jdk"
	PackageTypeJre PackageType = "jre"
)

// Request is a parsed version request of the form
// [<pkgtype>@][<distribution>@]<pattern>.
type Request struct {
	VersionPattern string
	Distribution   string      // lowercased name as given (synonyms unresolved), empty when unspecified
	PackageType    PackageType // empty when unspecified
}

// ParseRequest parses a version request string. The pattern part must be a
// well-formed version; a bare distribution name without a version is
// rejected.
func ParseRequest(s string) (Request, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Request{}, invalidFormat(s, "version request cannot be empty")
	}

	var req Request

	// Package type prefix (jdk@ or jre@); absence defaults to JDK at
	// selection time.
	switch {
	case strings.HasPrefix(trimmed, "jdk@"):
		req.PackageType = PackageTypeJdk
		trimmed = strings.TrimPrefix(trimmed, "jdk@")
	case strings.HasPrefix(trimmed, "jre@"):
		req.PackageType = PackageTypeJre
		trimmed = strings.TrimPrefix(trimmed, "jre@")
	}

	if strings.Contains(trimmed, "@") {
		parts := strings.SplitN(trimmed, "@", 2)
		dist, pattern := parts[0], parts[1]
		if dist == "" {
			return Request{}, invalidFormat(s, "empty distribution")
		}
		if pattern == "" {
			return Request{}, invalidFormat(s,
				fmt.Sprintf("distribution %q specified without version, use %q", dist, dist+"@VERSION"))
		}
		req.Distribution = strings.ToLower(dist)
		trimmed = pattern
	} else if isDistributionToken(trimmed) {
		return Request{}, invalidFormat(s,
			fmt.Sprintf("distribution %q specified without version, use %q", trimmed, trimmed+"@VERSION"))
	}

	if _, err := Parse(trimmed); err != nil {
		return Request{}, err
	}
	req.VersionPattern = trimmed

	return req, nil
}

// isDistributionToken reports whether a bare token names a distribution
// rather than a version pattern. A version pattern always starts with a
// digit.
func isDistributionToken(token string) bool {
	if token == "" {
		return false
	}
	c := token[0]
	return c < '0' || c > '9'
}

// String renders the request back to its canonical text form.
func (r Request) String() string {
	var sb strings.Builder
	if r.PackageType != "" {
		sb.WriteString(string(r.PackageType))
		sb.WriteByte('@')
	}
	if r.Distribution != "" {
		sb.WriteString(r.Distribution)
		sb.WriteByte('@')
	}
	sb.WriteString(r.VersionPattern)
	return sb.String()
}

// IsDistributionVersionPattern reports whether a pattern should be matched
// against a package's distribution version instead of its feature version:
// patterns with four or more numeric components, or whose '+' tail contains
// a dot or any non-digit, target the vendor's own version string.
func IsDistributionVersionPattern(pattern string) bool {
	base := pattern
	if idx := strings.IndexAny(pattern, "+-"); idx >= 0 {
		tail := pattern[idx+1:]
		base = pattern[:idx]
		if pattern[idx] == '+' {
			if strings.Contains(tail, ".") {
				return true
			}
			for _, c := range tail {
				if c < '0' || c > '9' {
					return true
				}
			}
		}
	}
	return strings.Count(base, ".") >= 3
}
