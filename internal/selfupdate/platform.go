// Package selfupdate replaces the running launcher binary with the
// newest published release build.
package selfupdate

import (
	"fmt"
	"runtime"
)

const (
	// GitHubOwner is the launcher repository owner on GitHub.
	GitHubOwner = "openuo"

	// GitHubRepo is the launcher repository name on GitHub.
	GitHubRepo = "uolaunch"

	// BinaryName is the name of the binary to extract from release
	// archives.
	BinaryName = "uolaunch"

	// ChecksumsFile is the name of the checksums asset in releases.
	ChecksumsFile = "checksums.txt"
)

// Platform represents the current OS and architecture.
type Platform struct {
	OS   string
	Arch string
}

// DetectPlatform returns the current OS and architecture.
func DetectPlatform() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// ArchiveName returns the release archive filename for a bare version
// (no "v" prefix), following the goreleaser naming scheme.
func (p Platform) ArchiveName(version string) string {
	ext := "tar.gz"
	if p.IsWindows() {
		ext = "zip"
	}

	return fmt.Sprintf("%s_%s_%s_%s.%s", BinaryName, version, p.OS, p.Arch, ext)
}

// BinaryChecksumName returns the checksums.txt entry name for the bare
// binary on this platform. Releases publish per-binary digests next to
// the archive digests so a running binary can be compared without
// downloading anything.
func (p Platform) BinaryChecksumName() string {
	name := fmt.Sprintf("%s_%s_%s", BinaryName, p.OS, p.Arch)
	if p.IsWindows() {
		name += ".exe"
	}

	return name
}

// IsWindows reports whether the platform is Windows.
func (p Platform) IsWindows() bool {
	return p.OS == "windows"
}

// DownloadURL returns the full download URL for a release asset.
func DownloadURL(tag, filename string) string {
	return fmt.Sprintf(
		"https://github.com/%s/%s/releases/download/%s/%s",
		GitHubOwner, GitHubRepo, tag, filename,
	)
}
