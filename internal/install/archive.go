package install

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// dirMode is the permission mode for extracted directories.
	dirMode = 0o755

	// fileMode is the permission mode for extracted regular files.
	fileMode = 0o644

	// execMode is the permission mode for entry-point files.
	execMode = 0o755
)

// extractArchive materializes an archive's full tree under destDir,
// dispatching on the archive file name. Supported formats are zip and
// gzip-compressed tar.
func extractArchive(archivePath, destDir string) error {
	name := strings.ToLower(archivePath)

	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, destDir)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTarGz(archivePath, destDir)
	default:
		return errors.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}
}

// extractZip extracts every entry of a zip archive under destDir.
//
//nolint:gosec // G304: archivePath is a file we just downloaded into our cache
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "opening zip archive")
	}
	defer r.Close() //nolint:errcheck // read-only zip

	for _, f := range r.File {
		dest, pathErr := safePath(destDir, f.Name)
		if pathErr != nil {
			return pathErr
		}

		if f.FileInfo().IsDir() {
			if mkErr := os.MkdirAll(dest, dirMode); mkErr != nil {
				return errors.Wrap(mkErr, "creating directory")
			}

			continue
		}

		rc, openErr := f.Open()
		if openErr != nil {
			return errors.Wrap(openErr, "opening zip entry")
		}

		writeErr := writeEntry(dest, rc, entryMode(f.Mode()))

		_ = rc.Close()

		if writeErr != nil {
			return errors.Wrapf(writeErr, "extracting %s", f.Name)
		}
	}

	return nil
}

// extractTarGz extracts every regular file and directory of a tar.gz
// archive under destDir. Other entry types are skipped.
//
//nolint:gosec // G304: archivePath is a file we just downloaded into our cache
func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer f.Close() //nolint:errcheck // read-only file

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "creating gzip reader")
	}
	defer gz.Close() //nolint:errcheck // read-only decompressor

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return errors.Wrap(err, "reading tar entry")
		}

		dest, pathErr := safePath(destDir, header.Name)
		if pathErr != nil {
			return pathErr
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(dest, dirMode); mkErr != nil {
				return errors.Wrap(mkErr, "creating directory")
			}
		case tar.TypeReg:
			mode := entryMode(os.FileMode(header.Mode)) //nolint:gosec // G115: tar mode bits fit in FileMode
			if writeErr := writeEntry(dest, tr, mode); writeErr != nil {
				return errors.Wrapf(writeErr, "extracting %s", header.Name)
			}
		default:
			// Symlinks and specials never appear in release archives.
			continue
		}
	}

	return nil
}

// entryMode preserves the executable bit of an archive entry and
// normalizes everything else.
func entryMode(mode os.FileMode) os.FileMode {
	if mode&0o111 != 0 {
		return execMode
	}

	return fileMode
}

// safePath validates that name resolves to a path within baseDir,
// preventing path traversal (Zip Slip) attacks from crafted archive
// entries.
func safePath(baseDir, name string) (string, error) {
	dest := filepath.Join(baseDir, name)

	cleanBase := filepath.Clean(baseDir) + string(os.PathSeparator)
	cleanDest := filepath.Clean(dest)

	if !strings.HasPrefix(cleanDest, cleanBase) {
		return "", errors.Errorf("path traversal attempt: %q escapes %q", name, baseDir)
	}

	return cleanDest, nil
}

// writeEntry writes data from reader to destPath, creating parent
// directories as needed.
//
//nolint:gosec // G304: destPath is validated by safePath
func writeEntry(destPath string, reader io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destPath), dirMode); err != nil {
		return errors.Wrap(err, "creating parent directory")
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrap(err, "creating extracted file")
	}

	_, copyErr := io.Copy(out, reader)

	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return errors.Wrap(closeErr, "closing extracted file")
	}

	if copyErr != nil {
		return errors.Wrap(copyErr, "extracting entry")
	}

	return nil
}

// stripWrapperDir returns the effective tree root under scratch. When
// the archive wraps its content in exactly one top-level directory the
// wrapper is discarded; older archives without the wrapper are returned
// as-is.
func stripWrapperDir(scratch string) (string, error) {
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return "", errors.Wrap(err, "reading scratch directory")
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(scratch, entries[0].Name()), nil
	}

	return scratch, nil
}
