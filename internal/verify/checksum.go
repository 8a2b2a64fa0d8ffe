package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/pkg/logger"
)

// FilesMatch reports whether every manifest entry is present under dir
// with the expected digest. A missing or unreadable file counts as a
// mismatch, so a half-deleted install reads as damaged rather than
// current. An empty manifest trivially matches.
func FilesMatch(dir string, files []remote.FileChecksum, log logger.Logger) bool {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))

		sum, err := fileSHA256(path)
		if err != nil {
			log.Debug("checksum target unreadable", "file", f.Name, "error", err)

			return false
		}

		if !strings.EqualFold(sum, f.Hash) {
			log.Debug("checksum mismatch", "file", f.Name)

			return false
		}
	}

	return true
}

// fileSHA256 returns the hex digest of a file's contents.
func fileSHA256(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // path is built from the install dir
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
