package remote

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/pkg/config"
	"github.com/openuo/uolaunch/pkg/logger"
)

const (
	// RazorOwner is the Razor repository owner on GitHub.
	RazorOwner = "markdwags"

	// RazorRepo is the Razor repository name on GitHub.
	RazorRepo = "Razor"

	// archMarker selects the 64-bit build among a release's assets.
	archMarker = "x64"
)

// RazorRelease is the resolved plugin descriptor.
type RazorRelease struct {
	Version  Version
	AssetURL string
}

// RazorResolver resolves the newest Razor release for a channel.
// Idempotent and memoized per run.
type RazorResolver struct {
	releases ReleasesClient
	channel  config.Channel
	log      logger.Logger

	once   sync.Once
	result RazorRelease
}

// NewRazorResolver creates a RazorResolver for the given channel.
func NewRazorResolver(releases ReleasesClient, channel config.Channel, log logger.Logger) *RazorResolver {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &RazorResolver{
		releases: releases,
		channel:  channel,
		log:      log,
	}
}

// Resolve selects the newest release matching the channel. Repeated
// calls return the first result; failures resolve to Unknown.
func (r *RazorResolver) Resolve(ctx context.Context) RazorRelease {
	r.once.Do(func() {
		r.result = r.resolve(ctx)
	})

	return r.result
}

func (r *RazorResolver) resolve(ctx context.Context) RazorRelease {
	releases, err := r.releases.ListReleases(ctx, RazorOwner, RazorRepo)
	if err != nil {
		r.log.Error("razor release feed fetch failed", "error", err)

		return RazorRelease{Version: Unknown}
	}

	release, err := SelectRelease(releases, r.channel)
	if err != nil {
		r.log.Error("razor release selection failed",
			"channel", r.channel, "error", err)

		return RazorRelease{Version: Unknown}
	}

	r.log.Debug("razor release resolved",
		"channel", r.channel, "version", release.Version)

	return release
}

// SelectRelease picks the first release whose prerelease flag matches
// the channel, then the 64-bit asset within it. The version identifier
// differs by channel: dev builds are untagged, so their identity is the
// release creation timestamp; stable builds use the tag name.
func SelectRelease(releases []*Release, channel config.Channel) (RazorRelease, error) {
	for _, rel := range releases {
		if rel.Prerelease != channel.Prerelease() {
			continue
		}

		asset, ok := selectAsset(rel.Assets)
		if !ok {
			return RazorRelease{}, errors.Errorf(
				"release %q has no %s asset", releaseName(rel), archMarker,
			)
		}

		return RazorRelease{
			Version:  releaseVersion(rel, channel),
			AssetURL: asset.DownloadURL,
		}, nil
	}

	return RazorRelease{}, errors.Errorf("no release matches channel %q", channel)
}

// selectAsset picks the asset whose name carries the 64-bit marker.
func selectAsset(assets []ReleaseAsset) (ReleaseAsset, bool) {
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), archMarker) {
			return a, true
		}
	}

	return ReleaseAsset{}, false
}

func releaseVersion(rel *Release, channel config.Channel) Version {
	if channel == config.ChannelDev {
		return Version(rel.CreatedAt.UTC().Format(time.RFC3339))
	}

	return Version(rel.TagName)
}

func releaseName(rel *Release) string {
	if rel.TagName != "" {
		return rel.TagName
	}

	return rel.CreatedAt.UTC().Format(time.RFC3339)
}
