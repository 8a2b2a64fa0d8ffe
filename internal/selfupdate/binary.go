package selfupdate

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

// binaryFileMode is the permission mode for extracted binaries.
const binaryFileMode = 0o755

// ExtractBinary pulls the launcher binary out of a release archive into
// a scratch directory. Returns the extracted path and a cleanup
// function.
func ExtractBinary(archivePath string, platform Platform) (string, func(), error) {
	if platform.IsWindows() {
		return extractFromZip(archivePath, BinaryName)
	}

	return extractFromTarGz(archivePath, BinaryName)
}

//nolint:gosec // G304: archivePath is a download we just verified
func extractFromTarGz(archivePath, binaryName string) (string, func(), error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", nil, errors.Wrap(err, "opening archive")
	}
	defer f.Close() //nolint:errcheck // read-only file

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", nil, errors.Wrap(err, "creating gzip reader")
	}
	defer gz.Close() //nolint:errcheck // read-only decompressor

	tmpDir, err := os.MkdirTemp("", "uolaunch-update-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating temp directory")
	}

	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	tr := tar.NewReader(gz)

	for {
		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			cleanup()

			return "", nil, errors.Wrap(nextErr, "reading tar entry")
		}

		// Match at any depth; release archives may wrap the binary in
		// a directory.
		if filepath.Base(header.Name) != binaryName || header.Typeflag != tar.TypeReg {
			continue
		}

		path, writeErr := writeBinary(tmpDir, binaryName, tr)
		if writeErr != nil {
			cleanup()

			return "", nil, writeErr
		}

		return path, cleanup, nil
	}

	cleanup()

	return "", nil, errors.Errorf("binary %q not found in archive", binaryName)
}

func extractFromZip(archivePath, binaryName string) (string, func(), error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", nil, errors.Wrap(err, "opening zip archive")
	}
	defer r.Close() //nolint:errcheck // read-only zip

	tmpDir, err := os.MkdirTemp("", "uolaunch-update-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating temp directory")
	}

	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	for _, f := range r.File {
		base := filepath.Base(f.Name)
		if (base != binaryName && base != binaryName+".exe") || f.FileInfo().IsDir() {
			continue
		}

		rc, openErr := f.Open()
		if openErr != nil {
			cleanup()

			return "", nil, errors.Wrap(openErr, "opening zip entry")
		}

		path, writeErr := writeBinary(tmpDir, base, rc)

		_ = rc.Close()

		if writeErr != nil {
			cleanup()

			return "", nil, writeErr
		}

		return path, cleanup, nil
	}

	cleanup()

	return "", nil, errors.Errorf("binary %q not found in zip archive", binaryName)
}

// writeBinary writes an archive entry into dir with executable
// permissions, guarding against traversal in the entry name.
//
//nolint:gosec // G304: dest stays within our temp directory
func writeBinary(dir, name string, reader io.Reader) (string, error) {
	dest := filepath.Join(dir, name)

	cleanBase := filepath.Clean(dir) + string(os.PathSeparator)
	if !strings.HasPrefix(filepath.Clean(dest), cleanBase) {
		return "", errors.Errorf("path traversal attempt: %q escapes %q", name, dir)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, binaryFileMode)
	if err != nil {
		return "", errors.Wrap(err, "creating extracted file")
	}

	_, copyErr := io.Copy(out, reader)

	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return "", errors.Wrap(closeErr, "closing extracted file")
	}

	if copyErr != nil {
		return "", errors.Wrap(copyErr, "extracting binary")
	}

	return dest, nil
}

// ReplaceBinary atomically replaces the binary at targetPath with the
// file at newPath: write a sibling temp file, then rename.
//
//nolint:gosec // G304/G703: paths are internal (extracted binary, current executable)
func ReplaceBinary(newPath, targetPath string) error {
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return errors.Wrap(err, "reading new binary")
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return errors.Wrap(err, "stat target binary")
	}

	tmpFile := filepath.Join(filepath.Dir(targetPath), ".uolaunch-update-tmp")

	if err := os.WriteFile(tmpFile, newData, info.Mode()); err != nil {
		return errors.Wrap(err, "writing temporary binary")
	}

	if err := os.Rename(tmpFile, targetPath); err != nil {
		_ = os.Remove(tmpFile)

		return errors.Wrap(err, "replacing binary")
	}

	return nil
}

// CurrentBinaryPath returns the resolved path of the running binary.
// Symlinks are resolved so the update lands on the real file.
func CurrentBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "getting executable path")
	}

	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", errors.Wrap(err, "resolving symlinks")
	}

	return resolved, nil
}

// CheckWritable reports whether the binary and its directory allow an
// in-place replace. A read-only install is an explicit error before any
// download happens.
func CheckWritable(binaryPath string) error {
	dir := filepath.Dir(binaryPath)

	probe, err := os.CreateTemp(dir, ".uolaunch-writable-*")
	if err != nil {
		return errors.Wrapf(err, "binary directory %s is not writable", dir)
	}

	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return nil
}
