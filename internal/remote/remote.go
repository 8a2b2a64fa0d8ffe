// Package remote resolves the current upstream version of each managed
// component into a normalized (identifier, download locator) pair.
//
// Resolvers are memoized for the duration of one run and never raise
// fetch or parse failures past this boundary: a failed resolution is an
// explicit Unknown version, so callers degrade gracefully instead of
// crashing the run.
package remote

import (
	"context"
)

// Version is an opaque version token reported by a remote descriptor.
type Version string

// Unknown is the sentinel for a version that could not be resolved. It
// never compares equal to a real remote version.
const Unknown Version = "unknown"

// IsUnknown reports whether the token is the unresolved sentinel.
func (v Version) IsUnknown() bool {
	return v == Unknown || v == ""
}

// String returns the token.
func (v Version) String() string {
	return string(v)
}

// Fetcher fetches a remote document as a string. Implemented by
// install.Downloader.
type Fetcher interface {
	DownloadToString(ctx context.Context, url string) (string, error)
}

// FileChecksum is one (relative path, hex digest) entry of a client
// manifest.
type FileChecksum struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}
