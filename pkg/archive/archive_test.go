package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	body     string
	mode     int64
	typeflag byte
	linkname string
}

func buildTarGz(t *testing.T, dir string, entries []tarEntry) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		typeflag := e.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     e.mode,
			Typeflag: typeflag,
			Linkname: e.linkname,
			Size:     int64(len(e.body)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(dir, "test.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func buildZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "test.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		expected Type
		ok       bool
	}{
		{"jdk.tar.gz", TypeTarGz, true},
		{"jdk.tgz", TypeTarGz, true},
		{"jdk.TAR.GZ", TypeTarGz, true},
		{"jdk.zip", TypeZip, true},
		{"jdk.tar.xz", TypeTarXz, true},
		{"jdk.rar", "", false},
		{"jdk", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := Detect(tt.filename)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	src := buildTarGz(t, dir, []tarEntry{
		{name: "jdk-21/", typeflag: tar.TypeDir, mode: 0755},
		{name: "jdk-21/bin/", typeflag: tar.TypeDir, mode: 0755},
		{name: "jdk-21/bin/java", body: "#!/bin/sh\n", mode: 0755},
		{name: "jdk-21/release", body: "JAVA_VERSION=21\n", mode: 0644},
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))

	assert.FileExists(t, filepath.Join(dest, "jdk-21", "release"))

	javaPath := filepath.Join(dest, "jdk-21", "bin", "java")
	info, err := os.Stat(javaPath)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode()&0111, "executable bit preserved from tar")
	}
}

func TestExtractZipSynthesizesBinExecBits(t *testing.T) {
	dir := t.TempDir()
	src := buildZip(t, dir, map[string]string{
		"jdk-21/bin/java": "binary",
		"jdk-21/readme":   "text",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dest, "jdk-21", "bin", "java"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0111, "bin/ entries get execute bits")
	}
	assert.FileExists(t, filepath.Join(dest, "jdk-21", "readme"))
}

func TestExtractRejectsPathTraversalTar(t *testing.T) {
	dir := t.TempDir()
	src := buildTarGz(t, dir, []tarEntry{
		{name: "ok.txt", body: "fine", mode: 0644},
		{name: "../evil", body: "escape", mode: 0644},
	})

	dest := filepath.Join(dir, "out")
	err := Extract(src, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathEscape)

	assert.NoFileExists(t, filepath.Join(dir, "evil"))
}

func TestExtractRejectsAbsolutePathTar(t *testing.T) {
	dir := t.TempDir()
	src := buildTarGz(t, dir, []tarEntry{
		{name: "/tmp/kopi-absolute-evil", body: "escape", mode: 0644},
	})

	err := Extract(src, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestExtractRejectsPathTraversalZip(t *testing.T) {
	dir := t.TempDir()
	src := buildZip(t, dir, map[string]string{
		"../evil": "escape",
	})

	err := Extract(src, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathEscape)
	assert.NoFileExists(t, filepath.Join(dir, "evil"))
}

func TestExtractRejectsEscapingSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	dir := t.TempDir()
	src := buildTarGz(t, dir, []tarEntry{
		{name: "link", typeflag: tar.TypeSymlink, linkname: "../../outside"},
	})

	err := Extract(src, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestExtractSymlinkInside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	dir := t.TempDir()
	src := buildTarGz(t, dir, []tarEntry{
		{name: "jdk/bin/", typeflag: tar.TypeDir, mode: 0755},
		{name: "jdk/bin/java", body: "bin", mode: 0755},
		{name: "jdk/bin/javaw", typeflag: tar.TypeSymlink, linkname: "java"},
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))

	link, err := os.Readlink(filepath.Join(dest, "jdk", "bin", "javaw"))
	require.NoError(t, err)
	assert.Equal(t, "java", link)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "archive.rar")
	require.NoError(t, os.WriteFile(src, []byte("junk"), 0644))

	err := Extract(src, filepath.Join(dir, "out"))
	assert.Error(t, err)
}
