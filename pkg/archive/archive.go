// Package archive extracts JDK archives (tar.gz, tgz, zip, tar.xz) into
// a destination directory with path-traversal protection.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/kopi-vm/kopi/pkg/util"
)

// ErrPathEscape reports an archive entry that would land outside the
// destination directory.
var ErrPathEscape = errors.New("archive entry escapes destination directory")

// Type identifies a supported archive format.
type Type string

const (
	TypeTarGz Type = "tar.gz"
	TypeTarXz Type = "tar.xz"
	TypeZip   Type = "zip"
)

// Detect determines the archive type from a file name.
func Detect(filename string) (Type, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz"):
		return TypeTarGz, nil
	case strings.HasSuffix(lower, ".tar.xz"):
		return TypeTarXz, nil
	case strings.HasSuffix(lower, ".zip"):
		return TypeZip, nil
	default:
		return "", errors.Errorf("unsupported archive format: %s", filename)
	}
}

// Extract inflates an archive into dest, which is created if missing.
// Every entry path is validated to stay inside dest.
func Extract(src, dest string) error {
	archiveType, err := Detect(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dest)
	}

	switch archiveType {
	case TypeZip:
		return extractZip(src, dest)
	case TypeTarGz:
		return extractTarball(src, dest, func(r io.Reader) (io.Reader, error) {
			gz, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			return gz, nil
		})
	case TypeTarXz:
		return extractTarball(src, dest, func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	default:
		return errors.Errorf("unsupported archive type: %s", archiveType)
	}
}

// safeTarget joins an entry name onto dest, rejecting absolute paths and
// anything that escapes the destination.
func safeTarget(dest, name string) (string, error) {
	if name == "" {
		return "", errors.Wrap(ErrPathEscape, "empty entry name")
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", errors.Wrapf(ErrPathEscape, "absolute path %q", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	cleanDest := filepath.Clean(dest)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", errors.Wrapf(ErrPathEscape, "entry %q", name)
	}
	return target, nil
}

func extractTarball(src, dest string, decompress func(io.Reader) (io.Reader, error)) error {
	file, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open archive %s", src)
	}
	defer file.Close()

	reader, err := decompress(file)
	if err != nil {
		return errors.Wrapf(err, "failed to decompress %s", src)
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read tar entry")
		}

		target, err := safeTarget(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fileMode(header.Mode)); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", target)
			}
		case tar.TypeReg:
			if err := writeFile(tarReader, target, fileMode(header.Mode)); err != nil {
				return errors.Wrapf(err, "failed to extract %s", target)
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, header.Linkname); err != nil {
				return err
			}
		default:
			util.LogVerbose("Skipping unsupported tar entry type %d for %s",
				header.Typeflag, header.Name)
		}
	}
	return nil
}

func extractZip(src, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open archive %s", src)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := safeTarget(dest, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirMode(entry.FileInfo().Mode())); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", target)
			}
			continue
		}

		mode := entry.FileInfo().Mode().Perm()
		// Zip archives built on Windows lose the execute bit; restore it
		// for launcher binaries.
		if isBinDirEntry(entry.Name) {
			mode |= 0755
		}

		entryReader, err := entry.Open()
		if err != nil {
			return errors.Wrapf(err, "failed to open zip entry %s", entry.Name)
		}
		err = writeFile(entryReader, target, mode)
		entryReader.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to extract %s", target)
		}
	}
	return nil
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if mode&0200 == 0 {
		mode |= 0200
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeSymlink(dest, target, linkname string) error {
	// A symlink target must stay inside the destination as well.
	if filepath.IsAbs(linkname) {
		return errors.Wrapf(ErrPathEscape, "absolute symlink target %q", linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	cleanDest := filepath.Clean(dest)
	if !strings.HasPrefix(resolved, cleanDest+string(os.PathSeparator)) {
		return errors.Wrapf(ErrPathEscape, "symlink target %q", linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		if err := os.RemoveAll(target); err != nil {
			return errors.Wrapf(err, "failed to replace %s", target)
		}
	}
	return os.Symlink(linkname, target)
}

func isBinDirEntry(name string) bool {
	dir := filepath.ToSlash(filepath.Dir(name))
	return dir == "bin" || strings.HasSuffix(dir, "/bin")
}

func fileMode(mode int64) os.FileMode {
	m := os.FileMode(mode).Perm()
	if m == 0 {
		m = 0644
	}
	return m
}

func dirMode(mode os.FileMode) os.FileMode {
	m := mode.Perm()
	if m == 0 {
		m = 0755
	}
	return m
}
