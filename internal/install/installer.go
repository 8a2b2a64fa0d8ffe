package install

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/pkg/logger"
)

// cacheDirMode is the permission mode for the download cache directory.
const cacheDirMode = 0o755

// StageOptions controls a StageAndReplace run.
type StageOptions struct {
	// Wipe removes the destination before the staged tree replaces it.
	// Used for destructive reinstalls; a missing destination is fine.
	Wipe bool

	// StripWrapper discards a single top-level wrapper directory when
	// the archive carries one. Older archives omit the wrapper, both
	// layouts are tolerated.
	StripWrapper bool

	// Executables lists file names (relative to the tree root) marked
	// executable after extraction, for platforms whose archives lose
	// the bit.
	Executables []string
}

// Installer performs the fetch, stage and replace sequence. It is the
// only writer inside a component's directory during that component's
// install.
type Installer struct {
	downloader *Downloader
	cacheDir   string
	log        logger.Logger
}

// New creates an Installer that caches downloads under cacheDir.
func New(downloader *Downloader, cacheDir string, log logger.Logger) *Installer {
	if downloader == nil {
		downloader = NewDownloader(nil)
	}

	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Installer{
		downloader: downloader,
		cacheDir:   cacheDir,
		log:        log,
	}
}

// Downloader exposes the underlying downloader for callers that fetch
// plain documents (version lists, manifests).
func (i *Installer) Downloader() *Downloader {
	return i.downloader
}

// Fetch downloads the archive at locator into the cache directory and
// returns the local path plus a cleanup func. Re-running after an
// interruption simply re-downloads.
func (i *Installer) Fetch(
	ctx context.Context,
	locator string,
	progress ProgressFunc,
) (string, func(), error) {
	if err := os.MkdirAll(i.cacheDir, cacheDirMode); err != nil {
		return "", nil, errors.Wrap(err, "creating download cache")
	}

	name := archiveName(locator)

	dest := filepath.Join(i.cacheDir, name)

	i.log.Info("downloading", "url", locator, "dest", dest)

	if err := i.downloader.DownloadToFile(ctx, locator, dest, progress); err != nil {
		return "", nil, errors.Wrapf(err, "fetching %s", name)
	}

	cleanup := func() { _ = os.Remove(dest) }

	return dest, cleanup, nil
}

// archiveName derives a stable local file name from a download locator.
func archiveName(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "download.bin"
	}

	return filepath.Base(u.Path)
}

// StageAndReplace extracts archive into scratch space next to dest and
// moves the completed tree onto dest. An interruption leaves debris
// only in scratch, never a half-written destination.
func (i *Installer) StageAndReplace(archive, dest string, opts StageOptions) error {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, dirMode); err != nil {
		return errors.Wrap(err, "creating install root")
	}

	// Scratch lives next to dest so the final rename stays on one
	// filesystem.
	scratch, err := os.MkdirTemp(parent, ".uolaunch-stage-*")
	if err != nil {
		return errors.Wrap(err, "creating scratch directory")
	}

	defer func() { _ = os.RemoveAll(scratch) }()

	if err := extractArchive(archive, scratch); err != nil {
		return errors.Wrap(err, "extracting archive")
	}

	root := scratch

	if opts.StripWrapper {
		root, err = stripWrapperDir(scratch)
		if err != nil {
			return err
		}
	}

	if err := markExecutables(root, opts.Executables); err != nil {
		return err
	}

	if opts.Wipe {
		i.log.Info("wiping destination", "dest", dest)
	}

	// The destination always goes away before the rename; rename onto
	// a populated directory fails. Missing destination is not an error.
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrap(err, "removing previous install")
	}

	if err := os.Rename(root, dest); err != nil {
		return errors.Wrap(err, "moving staged tree into place")
	}

	i.log.Info("installed", "dest", dest)

	return nil
}

// ApplyPatch extracts an incremental patch archive directly over an
// existing installed tree. Overwrite semantics, no rollback; used after
// a full install when only the patch version lags.
func (i *Installer) ApplyPatch(archive, dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return errors.Wrapf(err, "patch destination %s", dest)
	}

	if !info.IsDir() {
		return errors.Errorf("patch destination %s is not a directory", dest)
	}

	i.log.Info("applying patch", "archive", filepath.Base(archive), "dest", dest)

	return errors.Wrap(extractArchive(archive, dest), "applying patch")
}

// markExecutables sets the executable bit on the named entry points.
func markExecutables(root string, names []string) error {
	for _, name := range names {
		path := filepath.Join(root, name)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			// Not every archive ships every entry point.
			continue
		}

		if err := os.Chmod(path, execMode); err != nil {
			return errors.Wrapf(err, "marking %s executable", name)
		}
	}

	return nil
}

const (
	// razorLanguageDir holds Razor's translation resources.
	razorLanguageDir = "Language"

	// razorLanguageExt is the extension of translation resource files.
	razorLanguageExt = ".lng"
)

var (
	// Razor releases ship language files where the window-title format
	// token is double-escaped and rendered verbatim by the plugin.
	// Upstream defect; corrected in place after install.
	razorBadTitleToken  = []byte("{{0}} - {{1}}")
	razorGoodTitleToken = []byte("{0} - {1}")
)

// FixupRazorProfiles rewrites the known-bad byte sequence in Razor's
// installed language resource files. This is a narrow, documented
// string replacement, not a general content transformation.
func (i *Installer) FixupRazorProfiles(dir string) error {
	langDir := filepath.Join(dir, razorLanguageDir)

	entries, err := os.ReadDir(langDir)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "reading language directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != razorLanguageExt {
			continue
		}

		path := filepath.Join(langDir, entry.Name())

		//nolint:gosec // G304: path is inside the install root we just populated
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return errors.Wrapf(readErr, "reading %s", entry.Name())
		}

		if !bytes.Contains(data, razorBadTitleToken) {
			continue
		}

		fixed := bytes.ReplaceAll(data, razorBadTitleToken, razorGoodTitleToken)

		if writeErr := os.WriteFile(path, fixed, fileMode); writeErr != nil {
			return errors.Wrapf(writeErr, "rewriting %s", entry.Name())
		}

		i.log.Info("patched language file", "file", entry.Name())
	}

	return nil
}
