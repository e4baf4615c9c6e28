// Package version implements the JDK version algebra used across kopi:
// arbitrary-depth numeric components with an optional numeric build tail
// or an opaque pre-release tail.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// InvalidFormatError reports an unparsable version or version request.
type InvalidFormatError struct {
	Input  string
	Reason string
}

func (e *InvalidFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid version format %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid version format: %q", e.Input)
}

func invalidFormat(input, reason string) error {
	return &InvalidFormatError{Input: input, Reason: reason}
}

// Version represents a JDK version of arbitrary component depth.
// Examples: "8", "21.0.7", "21.0.7.6.1" (Corretto), "21.0.7.0.7.6"
// (Dragonwell), "11.0.2+9", "21-ea".
type Version struct {
	Components []int  // numeric components, at least one
	Build      []int  // numeric build tail (+N.N.N), nil when absent
	PreRelease string // opaque tail, empty when absent
}

// New creates a three-component version.
func New(major, minor, patch int) Version {
	return Version{Components: []int{major, minor, patch}}
}

// Parse parses a version string of the form
// <components>[+<build>] or <components>[-<pre>].
// The earlier of '+' and '-' wins the split; a '+' tail is a numeric
// build only when every dot-segment is purely digits, otherwise the
// tail is kept verbatim as the pre-release.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, invalidFormat(s, "empty string")
	}

	remaining := s
	var build []int
	var preRelease string

	plusPos := strings.Index(remaining, "+")
	dashPos := strings.Index(remaining, "-")

	splitAt := -1
	splitIsPlus := false
	switch {
	case plusPos >= 0 && dashPos >= 0:
		if plusPos < dashPos {
			splitAt, splitIsPlus = plusPos, true
		} else {
			splitAt, splitIsPlus = dashPos, false
		}
	case plusPos >= 0:
		splitAt, splitIsPlus = plusPos, true
	case dashPos >= 0:
		splitAt, splitIsPlus = dashPos, false
	}

	if splitAt >= 0 {
		tail := remaining[splitAt+1:]
		remaining = remaining[:splitAt]
		if tail == "" {
			return Version{}, invalidFormat(s, "empty tail")
		}
		if splitIsPlus {
			if parts, ok := parseNumericTail(tail); ok {
				build = parts
			} else {
				preRelease = tail
			}
		} else {
			preRelease = tail
		}
	}

	parts := strings.Split(remaining, ".")
	components := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || part == "" || n < 0 {
			return Version{}, invalidFormat(s, "non-numeric component")
		}
		components = append(components, n)
	}
	if len(components) == 0 {
		return Version{}, invalidFormat(s, "no components")
	}

	return Version{
		Components: components,
		Build:      build,
		PreRelease: preRelease,
	}, nil
}

// parseNumericTail splits a '+' tail on dots and reports whether every
// segment is non-empty and purely numeric.
func parseNumericTail(tail string) ([]int, bool) {
	parts := strings.Split(tail, ".")
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return nil, false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

// String renders the version with normalized integer components.
func (v Version) String() string {
	var sb strings.Builder
	for i, c := range v.Components {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(c))
	}
	if v.Build != nil {
		sb.WriteByte('+')
		for i, b := range v.Build {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(strconv.Itoa(b))
		}
	}
	if v.PreRelease != "" {
		sb.WriteByte('-')
		sb.WriteString(v.PreRelease)
	}
	return sb.String()
}

// MinimalString renders the version with trailing ".0" components
// dropped ("21.0.0" -> "21", "21.1.0" -> "21.1"). Used when persisting a
// user-chosen version to version files.
func (v Version) MinimalString() string {
	end := len(v.Components)
	for end > 1 && v.Components[end-1] == 0 {
		end--
	}
	trimmed := Version{
		Components: v.Components[:end],
		Build:      v.Build,
		PreRelease: v.PreRelease,
	}
	return trimmed.String()
}

// Compare returns -1, 0 or 1. Ordering is lexicographic on components;
// a version without a trailing segment sorts before a longer one
// (21 < 21.0 < 21.0.0). The build tail participates after components and
// the pre-release tail compares as a string, absent sorting first.
func (v Version) Compare(other Version) int {
	n := len(v.Components)
	if len(other.Components) < n {
		n = len(other.Components)
	}
	for i := 0; i < n; i++ {
		if v.Components[i] != other.Components[i] {
			if v.Components[i] < other.Components[i] {
				return -1
			}
			return 1
		}
	}
	if len(v.Components) != len(other.Components) {
		if len(v.Components) < len(other.Components) {
			return -1
		}
		return 1
	}

	if c := compareIntSlices(v.Build, other.Build); c != 0 {
		return c
	}

	switch {
	case v.PreRelease == other.PreRelease:
		return 0
	case v.PreRelease == "":
		return -1
	case other.PreRelease == "":
		return 1
	case v.PreRelease < other.PreRelease:
		return -1
	default:
		return 1
	}
}

func compareIntSlices(a, b []int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Equal reports exact equality; "21" and "21.0" are not equal.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// MatchesPattern reports whether this version matches the given pattern.
// Each component in the pattern must exist and be equal at the same index
// in this version: "21" matches 21.0.7+35, but "21.0.0" does not match
// "21". A pattern build or pre-release tail must be matched exactly.
func (v Version) MatchesPattern(pattern string) bool {
	patternVersion, err := Parse(pattern)
	if err != nil {
		return false
	}

	for i, pc := range patternVersion.Components {
		if i >= len(v.Components) || v.Components[i] != pc {
			return false
		}
	}

	if patternVersion.Build != nil {
		if v.Build == nil || compareIntSlices(patternVersion.Build, v.Build) != 0 {
			return false
		}
	}

	if patternVersion.PreRelease != "" && patternVersion.PreRelease != v.PreRelease {
		return false
	}

	return true
}

// MarshalText renders the version for JSON payloads.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a version from JSON payloads.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
