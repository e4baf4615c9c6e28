package download

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/kopi-vm/kopi/pkg/metadata"
)

// ComputeChecksum hashes a file with the named algorithm and returns the
// lowercase hex digest.
func ComputeChecksum(path string, checksumType metadata.ChecksumType) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	var hasher hash.Hash
	switch checksumType {
	case metadata.ChecksumSHA256, "":
		hasher = sha256.New()
	case metadata.ChecksumSHA512:
		hasher = sha512.New()
	case metadata.ChecksumSHA1:
		hasher = sha1.New()
	case metadata.ChecksumMD5:
		hasher = md5.New()
	default:
		return "", errors.Errorf("unsupported checksum type: %s", checksumType)
	}

	if _, err := io.Copy(hasher, file); err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyFileChecksum compares a file's hash against the expected value,
// case-insensitively.
func VerifyFileChecksum(path, expected string, checksumType metadata.ChecksumType) error {
	actual, err := ComputeChecksum(path, checksumType)
	if err != nil {
		return err
	}
	if !strings.EqualFold(expected, actual) {
		return errors.Wrapf(ErrChecksumMismatch, "expected %s, got %s", expected, actual)
	}
	return nil
}
