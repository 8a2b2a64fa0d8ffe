package remote_test

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/pkg/config"
)

// stubReleasesClient implements remote.ReleasesClient for testing.
type stubReleasesClient struct {
	releases []*remote.Release
	err      error
	calls    int
}

func (c *stubReleasesClient) ListReleases(_ context.Context, _, _ string) ([]*remote.Release, error) {
	c.calls++

	return c.releases, c.err
}

var _ = Describe("SelectRelease", func() {
	stableRelease := &remote.Release{
		TagName:    "v1.9.77.0",
		Prerelease: false,
		CreatedAt:  time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
		Assets: assetList(
			"Razor-x64-1.9.77.0.zip", "https://example.com/razor-x64.zip",
			"Razor-x86-1.9.77.0.zip", "https://example.com/razor-x86.zip",
		),
	}

	devRelease := &remote.Release{
		TagName:    "",
		Prerelease: true,
		CreatedAt:  time.Date(2025, 3, 15, 8, 30, 0, 0, time.UTC),
		Assets: assetList(
			"Razor-x64-nightly.zip", "https://example.com/razor-x64-nightly.zip",
		),
	}

	It("selects the newest stable release and uses its tag as the version", func() {
		got, err := remote.SelectRelease(
			[]*remote.Release{devRelease, stableRelease},
			config.ChannelStable,
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(got.Version).To(Equal(remote.Version("v1.9.77.0")))
		Expect(got.AssetURL).To(Equal("https://example.com/razor-x64.zip"))
	})

	It("selects the newest prerelease on the dev channel and uses its creation timestamp as the version", func() {
		got, err := remote.SelectRelease(
			[]*remote.Release{devRelease, stableRelease},
			config.ChannelDev,
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(got.Version).To(Equal(remote.Version("2025-03-15T08:30:00Z")))
		Expect(got.AssetURL).To(Equal("https://example.com/razor-x64-nightly.zip"))
	})

	It("picks the 64-bit asset regardless of name casing", func() {
		release := &remote.Release{
			TagName: "v2.0.0",
			Assets: assetList(
				"Razor-X64-2.0.0.zip", "https://example.com/upper.zip",
			),
		}

		got, err := remote.SelectRelease([]*remote.Release{release}, config.ChannelStable)

		Expect(err).NotTo(HaveOccurred())
		Expect(got.AssetURL).To(Equal("https://example.com/upper.zip"))
	})

	It("errors when the matching release has no 64-bit asset", func() {
		release := &remote.Release{
			TagName: "v2.0.0",
			Assets: assetList(
				"Razor-x86-2.0.0.zip", "https://example.com/x86.zip",
			),
		}

		_, err := remote.SelectRelease([]*remote.Release{release}, config.ChannelStable)

		Expect(err).To(MatchError(ContainSubstring("no x64 asset")))
	})

	It("errors when no release matches the channel", func() {
		_, err := remote.SelectRelease([]*remote.Release{stableRelease}, config.ChannelDev)

		Expect(err).To(MatchError(ContainSubstring("no release matches channel")))
	})
})

var _ = Describe("RazorResolver", func() {
	It("resolves to Unknown when the release feed is unavailable", func() {
		client := &stubReleasesClient{err: errors.New("api down")}

		got := remote.NewRazorResolver(client, config.ChannelStable, nil).
			Resolve(context.Background())

		Expect(got.Version).To(Equal(remote.Unknown))
	})

	It("resolves to Unknown when selection fails", func() {
		client := &stubReleasesClient{releases: []*remote.Release{
			{TagName: "v1.0.0", Prerelease: true},
		}}

		got := remote.NewRazorResolver(client, config.ChannelStable, nil).
			Resolve(context.Background())

		Expect(got.Version).To(Equal(remote.Unknown))
	})

	It("memoizes the first result for the run", func() {
		client := &stubReleasesClient{releases: []*remote.Release{
			{
				TagName: "v1.9.77.0",
				Assets:  assetList("Razor-x64.zip", "https://example.com/razor.zip"),
			},
		}}
		resolver := remote.NewRazorResolver(client, config.ChannelStable, nil)

		first := resolver.Resolve(context.Background())
		second := resolver.Resolve(context.Background())

		Expect(second).To(Equal(first))
		Expect(client.calls).To(Equal(1))
	})
})

// assetList builds an asset list from (name, url) pairs.
func assetList(pairs ...string) []remote.ReleaseAsset {
	assets := make([]remote.ReleaseAsset, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		assets = append(assets, remote.ReleaseAsset{
			Name:        pairs[i],
			DownloadURL: pairs[i+1],
		})
	}

	return assets
}
