package selfupdate

import (
	"context"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/internal/install"
	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/pkg/logger"
)

// ErrAlreadyLatest is returned when the running binary already matches
// the latest release. It is a distinct outcome, not a failure: nothing
// was written.
var ErrAlreadyLatest = errors.New("already up to date")

// ReleaseClient fetches the newest release of a repository. Implemented
// by remote.SDKReleasesClient.
type ReleaseClient interface {
	LatestRelease(ctx context.Context, owner, repo string) (*remote.Release, error)
}

// Fetcher downloads release assets. Implemented by install.Downloader.
type Fetcher interface {
	DownloadToString(ctx context.Context, url string) (string, error)
	DownloadToFile(ctx context.Context, url, destPath string, progress install.ProgressFunc) error
}

// UpdateResult is the outcome of a completed update.
type UpdateResult struct {
	PreviousVersion string
	NewVersion      string
	BinaryPath      string
}

// Updater orchestrates the launcher's self-update.
type Updater struct {
	currentVersion string
	releases       ReleaseClient
	fetcher        Fetcher
	platform       Platform
	log            logger.Logger
}

// New creates an Updater for the given running version.
func New(currentVersion string, releases ReleaseClient, fetcher Fetcher, log logger.Logger) *Updater {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Updater{
		currentVersion: currentVersion,
		releases:       releases,
		fetcher:        fetcher,
		platform:       DetectPlatform(),
		log:            log,
	}
}

// CheckLatest returns the latest release tag when an update is needed,
// or ErrAlreadyLatest. Tagged builds are gated by a semver comparison
// against the running version. Dev builds carry no comparable version,
// so they compare the running binary's digest with the published binary
// checksum instead.
func (u *Updater) CheckLatest(ctx context.Context) (string, error) {
	release, err := u.releases.LatestRelease(ctx, GitHubOwner, GitHubRepo)
	if err != nil {
		return "", errors.Wrap(err, "checking latest release")
	}

	tag := release.TagName

	if u.currentVersion != "dev" {
		newer, semverErr := tagIsNewer(tag, u.currentVersion)
		if semverErr != nil {
			return "", semverErr
		}

		if !newer {
			return "", ErrAlreadyLatest
		}

		return tag, nil
	}

	// Dev builds compare by digest only.
	same, err := u.binaryMatchesRelease(ctx, tag)
	if err != nil {
		return "", err
	}

	if same {
		return "", ErrAlreadyLatest
	}

	return tag, nil
}

// tagIsNewer reports whether the release tag is semver-newer than the
// running version.
func tagIsNewer(tag, current string) (bool, error) {
	latestVer, err := semver.NewVersion(strings.TrimPrefix(tag, "v"))
	if err != nil {
		return false, errors.Wrapf(err, "parsing latest version %q", tag)
	}

	currentVer, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false, errors.Wrapf(err, "parsing current version %q", current)
	}

	return currentVer.LessThan(latestVer), nil
}

// binaryMatchesRelease compares the running binary's digest with the
// release's published binary checksum.
func (u *Updater) binaryMatchesRelease(ctx context.Context, tag string) (bool, error) {
	checksums, err := u.fetchChecksums(ctx, tag)
	if err != nil {
		return false, err
	}

	published, ok := checksums[u.platform.BinaryChecksumName()]
	if !ok {
		// No per-binary digest published: cannot short-circuit, update.
		return false, nil
	}

	binaryPath, err := CurrentBinaryPath()
	if err != nil {
		return false, err
	}

	current, err := FileSHA256(binaryPath)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(current, published), nil
}

// Update downloads, verifies, and installs the release at tag in place
// of the running binary. The writability check runs before any network
// traffic.
func (u *Updater) Update(
	ctx context.Context,
	tag string,
	progress install.ProgressFunc,
) (*UpdateResult, error) {
	binaryPath, err := CurrentBinaryPath()
	if err != nil {
		return nil, err
	}

	if err := CheckWritable(binaryPath); err != nil {
		return nil, err
	}

	ver := strings.TrimPrefix(tag, "v")
	archiveName := u.platform.ArchiveName(ver)

	archivePath, err := u.downloadAndVerify(ctx, tag, archiveName, progress)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(archivePath) }()

	extractedPath, cleanup, err := ExtractBinary(archivePath, u.platform)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := ReplaceBinary(extractedPath, binaryPath); err != nil {
		return nil, err
	}

	u.log.Info("launcher updated",
		"from", u.currentVersion, "to", ver, "path", binaryPath)

	return &UpdateResult{
		PreviousVersion: u.currentVersion,
		NewVersion:      ver,
		BinaryPath:      binaryPath,
	}, nil
}

// fetchChecksums downloads and parses the release's checksums asset.
func (u *Updater) fetchChecksums(ctx context.Context, tag string) (map[string]string, error) {
	content, err := u.fetcher.DownloadToString(ctx, DownloadURL(tag, ChecksumsFile))
	if err != nil {
		return nil, errors.Wrap(err, "downloading checksums")
	}

	return ParseChecksums(content), nil
}

// downloadAndVerify fetches the release archive to a temp file and
// checks it against the published digest.
func (u *Updater) downloadAndVerify(
	ctx context.Context,
	tag, archiveName string,
	progress install.ProgressFunc,
) (string, error) {
	checksums, err := u.fetchChecksums(ctx, tag)
	if err != nil {
		return "", err
	}

	expectedHash, ok := checksums[archiveName]
	if !ok {
		return "", errors.Errorf(
			"no checksum found for %s in release %s", archiveName, tag,
		)
	}

	tmpFile, err := os.CreateTemp("", "uolaunch-archive-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file for archive")
	}

	tmpPath := tmpFile.Name()

	if closeErr := tmpFile.Close(); closeErr != nil {
		return "", errors.Wrap(closeErr, "closing temp file")
	}

	if dlErr := u.fetcher.DownloadToFile(ctx, DownloadURL(tag, archiveName), tmpPath, progress); dlErr != nil {
		_ = os.Remove(tmpPath)

		return "", errors.Wrap(dlErr, "downloading archive")
	}

	if verifyErr := VerifyFileChecksum(tmpPath, expectedHash); verifyErr != nil {
		_ = os.Remove(tmpPath)

		return "", errors.Wrap(verifyErr, "verifying archive checksum")
	}

	return tmpPath, nil
}
