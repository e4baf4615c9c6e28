// Package platform isolates host detection and the small set of
// cross-platform file operations the rest of kopi relies on.
package platform

import (
	"fmt"
	"os"
	"runtime"
)

// CurrentOS returns the catalog name for the host operating system.
func CurrentOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "linux":
		if isAlpine() {
			return "alpine-linux"
		}
		return "linux"
	default:
		return runtime.GOOS
	}
}

// CurrentArch returns the catalog name for the host architecture.
func CurrentArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "arm64":
		return "aarch64"
	case "386":
		return "x86"
	case "arm":
		return "arm32"
	default:
		return runtime.GOARCH
	}
}

// CurrentLibC returns the libc variant on Linux hosts ("glibc" or
// "musl") and the empty string elsewhere.
func CurrentLibC() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	if isAlpine() {
		return "musl"
	}
	if _, err := os.Stat("/lib/ld-musl-x86_64.so.1"); err == nil {
		return "musl"
	}
	if _, err := os.Stat("/lib/ld-musl-aarch64.so.1"); err == nil {
		return "musl"
	}
	return "glibc"
}

func isAlpine() bool {
	_, err := os.Stat("/etc/alpine-release")
	return err == nil
}

// Directory returns the per-platform metadata directory name:
// "<os>-<arch>" plus the libc variant on Linux ("linux-x64-glibc").
func Directory() string {
	osName := CurrentOS()
	arch := CurrentArch()
	if libc := CurrentLibC(); libc != "" {
		return fmt.Sprintf("%s-%s-%s", osName, arch, libc)
	}
	return fmt.Sprintf("%s-%s", osName, arch)
}

// Triple returns the platform triple recorded in install sidecars:
// "<os>_<arch>" plus the libc variant on Linux ("linux_x64_glibc").
func Triple() string {
	osName := CurrentOS()
	arch := CurrentArch()
	if libc := CurrentLibC(); libc != "" {
		return fmt.Sprintf("%s_%s_%s", osName, arch, libc)
	}
	return fmt.Sprintf("%s_%s", osName, arch)
}

// MatchesOS reports whether a catalog operating-system value targets
// this host. "alpine-linux" hosts also accept plain "linux" packages;
// the package's libc is not checked here.
func MatchesOS(osName string) bool {
	current := CurrentOS()
	if osName == current {
		return true
	}
	return current == "alpine-linux" && osName == "linux"
}

// MatchesArch reports whether a catalog architecture value targets this
// host, accepting the Go spellings as aliases.
func MatchesArch(arch string) bool {
	if arch == CurrentArch() {
		return true
	}
	switch arch {
	case "amd64":
		return CurrentArch() == "x64"
	case "arm64":
		return CurrentArch() == "aarch64"
	}
	return false
}

// JavaExecutable returns the platform name of the java binary.
func JavaExecutable() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}
