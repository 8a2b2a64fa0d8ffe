package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	store "github.com/openuo/uolaunch/internal/config"
	"github.com/openuo/uolaunch/pkg/config"
)

var _ = Describe("Store", func() {
	var (
		dir  string
		path string
		s    *store.Store
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "config.toml")
		s = store.NewStoreWithPath(path, nil)
	})

	Describe("Load", func() {
		It("returns defaults when no file exists", func() {
			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.ClientVersion).To(Equal(config.VersionUnknown))
			Expect(cfg.FilesVersion).To(Equal(config.VersionUnknown))
			Expect(cfg.PatchVersion).To(Equal(config.VersionUnknown))
			Expect(cfg.RazorVersion).To(Equal(config.VersionUnknown))
			Expect(cfg.ShouldLaunch()).To(BeTrue())
			Expect(cfg.IsRazorEnabled()).To(BeFalse())
			Expect(cfg.GetRazorChannel()).To(Equal(config.ChannelStable))
			Expect(cfg.InstallPath).NotTo(BeEmpty())
		})

		It("merges a partial file over defaults", func() {
			content := "client_version = \"5\"\nrazor_version = \"2\"\n"
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.ClientVersion).To(Equal("5"))
			Expect(cfg.RazorVersion).To(Equal("2"))
			// Every other field keeps its default.
			Expect(cfg.FilesVersion).To(Equal(config.VersionUnknown))
			Expect(cfg.PatchVersion).To(Equal(config.VersionUnknown))
			Expect(cfg.ShouldLaunch()).To(BeTrue())
			Expect(cfg.GetRazorChannel()).To(Equal(config.ChannelStable))
		})

		It("treats a malformed file as no overrides", func() {
			Expect(os.WriteFile(path, []byte("{{{not toml"), 0o600)).To(Succeed())

			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ClientVersion).To(Equal(config.VersionUnknown))
		})

		It("lets environment variables override the file", func() {
			content := "razor_channel = \"stable\"\n"
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

			GinkgoT().Setenv("UOLAUNCH_RAZOR_CHANNEL", "dev")

			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.GetRazorChannel()).To(Equal(config.ChannelDev))
		})

		It("gives flags the highest precedence", func() {
			GinkgoT().Setenv("UOLAUNCH_INSTALL_PATH", "/from/env")

			cfg, err := s.Load(map[string]any{"install_path": "/from/flag"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.InstallPath).To(Equal("/from/flag"))
		})

		It("maps empty version tokens to unknown", func() {
			content := "client_version = \"\"\n"
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ClientVersion).To(Equal(config.VersionUnknown))
		})
	})

	Describe("Save", func() {
		It("round-trips: loading a just-saved record yields the same record", func() {
			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())

			cfg.ClientVersion = "7.0.95"
			cfg.InstallPath = "/games/uo"
			off := false
			cfg.Launch = &off

			Expect(s.Save(cfg)).To(Succeed())

			reloaded, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded).To(Equal(cfg))

			// Idempotent: a second save/load cycle changes nothing.
			Expect(s.Save(reloaded)).To(Succeed())

			again, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(reloaded))
		})

		It("creates the containing directory when absent", func() {
			nested := store.NewStoreWithPath(
				filepath.Join(dir, "deep", "nested", "config.toml"), nil,
			)

			cfg, err := nested.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(nested.Save(cfg)).To(Succeed())
			Expect(nested.Exists()).To(BeTrue())
		})

		It("leaves no temporary file behind", func() {
			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Save(cfg)).To(Succeed())

			_, err = os.Stat(path + ".tmp")
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("SetVersion", func() {
		It("persists a single field immediately", func() {
			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetVersion(cfg, store.FieldFilesVersion, "2024.3")).To(Succeed())

			reloaded, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.FilesVersion).To(Equal("2024.3"))
			Expect(reloaded.ClientVersion).To(Equal(config.VersionUnknown))
		})

		It("normalizes empty tokens to unknown", func() {
			cfg, err := s.Load(nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetVersion(cfg, store.FieldPatchVersion, "")).To(Succeed())
			Expect(cfg.PatchVersion).To(Equal(config.VersionUnknown))
		})
	})
})
