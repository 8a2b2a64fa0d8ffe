package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/pkg/logger"
)

const (
	// bundleVersionIndex is the significant line carrying the full
	// bundle version.
	bundleVersionIndex = 0

	// patchVersionIndex is the significant line carrying the
	// incremental patch version. The feed is positional; the indices
	// are wire compatibility with the existing service and must not
	// change while it is in use.
	patchVersionIndex = 3
)

// FilesVersions is the resolved game-file bundle descriptor.
type FilesVersions struct {
	Bundle    Version
	Patch     Version
	BundleURL string
	PatchURL  string
}

// FilesResolver resolves the game-file version list. Idempotent and
// memoized per run.
type FilesResolver struct {
	fetcher Fetcher
	listURL string
	baseURL string
	log     logger.Logger

	once   sync.Once
	result FilesVersions
}

// NewFilesResolver creates a FilesResolver. listURL names the version
// list document; baseURL is the directory the bundle and patch archives
// are published under.
func NewFilesResolver(fetcher Fetcher, listURL, baseURL string, log logger.Logger) *FilesResolver {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &FilesResolver{
		fetcher: fetcher,
		listURL: listURL,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

// Resolve fetches and parses the version list. Repeated calls return
// the first result; failures resolve both versions to Unknown.
func (r *FilesResolver) Resolve(ctx context.Context) FilesVersions {
	r.once.Do(func() {
		r.result = r.resolve(ctx)
	})

	return r.result
}

func (r *FilesResolver) resolve(ctx context.Context) FilesVersions {
	unknown := FilesVersions{Bundle: Unknown, Patch: Unknown}

	body, err := r.fetcher.DownloadToString(ctx, r.listURL)
	if err != nil {
		r.log.Error("version list fetch failed", "url", r.listURL, "error", err)

		return unknown
	}

	bundle, patch, err := parseVersionList(body)
	if err != nil {
		r.log.Error("version list parse failed", "url", r.listURL, "error", err)

		return unknown
	}

	r.log.Debug("file versions resolved", "bundle", bundle, "patch", patch)

	return FilesVersions{
		Bundle:    bundle,
		Patch:     patch,
		BundleURL: fmt.Sprintf("%s/uofiles-%s.zip", r.baseURL, bundle),
		PatchURL:  fmt.Sprintf("%s/uopatch-%s.zip", r.baseURL, patch),
	}
}

// parseVersionList extracts the bundle and patch versions from the
// newline-delimited feed. Blank lines and lines starting with '#' are
// skipped; a feed with too few significant lines is an explicit error,
// never a silent default.
func parseVersionList(body string) (bundle, patch Version, err error) {
	significant := SignificantLines(body)

	if len(significant) <= patchVersionIndex {
		return "", "", errors.Errorf(
			"version list has %d significant lines, need at least %d",
			len(significant), patchVersionIndex+1,
		)
	}

	return Version(significant[bundleVersionIndex]),
		Version(significant[patchVersionIndex]),
		nil
}

// SignificantLines returns the feed's lines with blanks and '#'
// comments removed, trimmed of surrounding whitespace.
func SignificantLines(body string) []string {
	var lines []string

	for line := range strings.SplitSeq(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}
