package remote_test

import (
	"context"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openuo/uolaunch/internal/remote"
)

var _ = Describe("ClientResolver", func() {
	const manifestURL = "https://files.openuo.org/client.json"

	It("resolves a manifest with a version string", func() {
		fetcher := &stubFetcher{body: `{
			"version": "3.21.0",
			"archive": "https://files.openuo.org/client-3.21.0.zip"
		}`}

		got := remote.NewClientResolver(fetcher, manifestURL, nil).Resolve(context.Background())

		Expect(got.Version).To(Equal(remote.Version("3.21.0")))
		Expect(got.ArchiveURL).To(Equal("https://files.openuo.org/client-3.21.0.zip"))
		Expect(got.Files).To(BeEmpty())
	})

	It("derives a synthetic version from the document digest when the manifest only lists files", func() {
		body := `{
			"archive": "https://files.openuo.org/client.zip",
			"files": [{"name": "client.exe", "hash": "deadbeef"}]
		}`
		fetcher := &stubFetcher{body: body}

		got := remote.NewClientResolver(fetcher, manifestURL, nil).Resolve(context.Background())

		Expect(got.Version.IsUnknown()).To(BeFalse())
		Expect(got.Version).To(HaveLen(12))
		Expect(got.Files).To(HaveLen(1))

		// The synthetic version is a pure function of the document.
		again := remote.NewClientResolver(&stubFetcher{body: body}, manifestURL, nil).
			Resolve(context.Background())
		Expect(again.Version).To(Equal(got.Version))
	})

	It("resolves to Unknown when the manifest has no archive locator", func() {
		fetcher := &stubFetcher{body: `{"version": "3.21.0"}`}

		got := remote.NewClientResolver(fetcher, manifestURL, nil).Resolve(context.Background())

		Expect(got.Version).To(Equal(remote.Unknown))
	})

	It("resolves to Unknown on malformed JSON", func() {
		fetcher := &stubFetcher{body: `{not json`}

		got := remote.NewClientResolver(fetcher, manifestURL, nil).Resolve(context.Background())

		Expect(got.Version).To(Equal(remote.Unknown))
	})

	It("resolves to Unknown on fetch failure and memoizes it", func() {
		fetcher := &stubFetcher{err: errors.New("dns failure")}
		resolver := remote.NewClientResolver(fetcher, manifestURL, nil)

		Expect(resolver.Resolve(context.Background()).Version).To(Equal(remote.Unknown))
		Expect(resolver.Resolve(context.Background()).Version).To(Equal(remote.Unknown))
		Expect(fetcher.calls).To(Equal(1))
	})
})
