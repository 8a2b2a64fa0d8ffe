package selfupdate

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// checksumParts is the number of fields in a checksums.txt line.
const checksumParts = 2

// ParseChecksums parses a goreleaser checksums.txt into a map of
// filename -> hex digest. Lines are "<hash>  <filename>" with two
// spaces; malformed lines are skipped.
func ParseChecksums(content string) map[string]string {
	result := make(map[string]string)

	for line := range strings.SplitSeq(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "  ", checksumParts)
		if len(parts) != checksumParts {
			continue
		}

		hash := strings.TrimSpace(parts[0])
		filename := strings.TrimSpace(parts[1])

		if hash != "" && filename != "" {
			result[filename] = hash
		}
	}

	return result
}

// FileSHA256 returns the hex SHA256 digest of a file's contents.
//
//nolint:gosec // G304: callers pass our own binary or downloads
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file for checksum")
	}
	defer f.Close() //nolint:errcheck // read-only file

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "computing checksum")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFileChecksum compares a file's SHA256 with the expected hex
// digest.
func VerifyFileChecksum(path, expectedHex string) error {
	actual, err := FileSHA256(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actual, expectedHex) {
		return errors.Errorf(
			"checksum mismatch: expected %s, got %s",
			expectedHex, actual,
		)
	}

	return nil
}
