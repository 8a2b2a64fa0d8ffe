package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cfgstore "github.com/openuo/uolaunch/internal/config"
	"github.com/openuo/uolaunch/internal/install"
	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/internal/settings"
	"github.com/openuo/uolaunch/pkg/config"
)

// versionWrite records one persisted version field.
type versionWrite struct {
	field cfgstore.VersionField
	token string
}

// stubStore implements configStore in memory.
type stubStore struct {
	writes []versionWrite
	err    error
}

func (s *stubStore) SetVersion(cfg *config.Config, field cfgstore.VersionField, token string) error {
	if s.err != nil {
		return s.err
	}

	switch field {
	case cfgstore.FieldClientVersion:
		cfg.ClientVersion = token
	case cfgstore.FieldFilesVersion:
		cfg.FilesVersion = token
	case cfgstore.FieldPatchVersion:
		cfg.PatchVersion = token
	case cfgstore.FieldRazorVersion:
		cfg.RazorVersion = token
	}

	s.writes = append(s.writes, versionWrite{field: field, token: token})

	return nil
}

// stageCall records one StageAndReplace invocation.
type stageCall struct {
	locator string
	dest    string
	opts    install.StageOptions
}

// stubInstaller implements installService without touching the network.
type stubInstaller struct {
	stages   []stageCall
	patches  []string
	fixups   []string
	fetchErr error
	stageErr error
	patchErr error

	lastLocator string
}

func (i *stubInstaller) Fetch(
	_ context.Context, locator string, _ install.ProgressFunc,
) (string, func(), error) {
	if i.fetchErr != nil {
		return "", nil, i.fetchErr
	}

	i.lastLocator = locator

	return "/tmp/stub-archive.zip", func() {}, nil
}

func (i *stubInstaller) StageAndReplace(_, dest string, opts install.StageOptions) error {
	if i.stageErr != nil {
		return i.stageErr
	}

	i.stages = append(i.stages, stageCall{locator: i.lastLocator, dest: dest, opts: opts})

	return nil
}

func (i *stubInstaller) ApplyPatch(_, dest string) error {
	if i.patchErr != nil {
		return i.patchErr
	}

	i.patches = append(i.patches, dest)

	return nil
}

func (i *stubInstaller) FixupRazorProfiles(dir string) error {
	i.fixups = append(i.fixups, dir)

	return nil
}

type stubClientResolver struct{ manifest remote.ClientManifest }

func (r *stubClientResolver) Resolve(context.Context) remote.ClientManifest { return r.manifest }

type stubFilesResolver struct{ versions remote.FilesVersions }

func (r *stubFilesResolver) Resolve(context.Context) remote.FilesVersions { return r.versions }

type stubRazorResolver struct{ release remote.RazorRelease }

func (r *stubRazorResolver) Resolve(context.Context) remote.RazorRelease { return r.release }

var _ = Describe("Launcher.Run", func() {
	var (
		installRoot string
		store       *stubStore
		installer   *stubInstaller
		client      *stubClientResolver
		files       *stubFilesResolver
		razor       *stubRazorResolver
		out         bytes.Buffer
		cfg         *config.Config

		syncedValues  []settings.Values
		handoffCalled bool
	)

	newLauncher := func() *Launcher {
		l := New(Deps{
			Store:     store,
			Installer: installer,
			Client:    client,
			Files:     files,
			Razor:     razor,
			Out:       &out,
		})

		l.syncSettings = func(_ string, values settings.Values) error {
			syncedValues = append(syncedValues, values)

			return nil
		}
		l.handoff = func(string) error {
			handoffCalled = true

			return nil
		}

		return l
	}

	// makeInstalled creates a component directory so LocalExists holds.
	makeInstalled := func(sub string) {
		Expect(os.MkdirAll(filepath.Join(installRoot, sub), 0o755)).To(Succeed())
	}

	BeforeEach(func() {
		installRoot = GinkgoT().TempDir()
		out.Reset()
		syncedValues = nil
		handoffCalled = false

		store = &stubStore{}
		installer = &stubInstaller{}
		client = &stubClientResolver{manifest: remote.ClientManifest{
			Version:    "3.21.0",
			ArchiveURL: "https://files.openuo.org/client-3.21.0.zip",
		}}
		files = &stubFilesResolver{versions: remote.FilesVersions{
			Bundle:    "2024.3",
			Patch:     "p17",
			BundleURL: "https://files.openuo.org/uofiles-2024.3.zip",
			PatchURL:  "https://files.openuo.org/uopatch-p17.zip",
		}}
		razor = &stubRazorResolver{release: remote.RazorRelease{
			Version:  "v1.9.77.0",
			AssetURL: "https://example.com/razor-x64.zip",
		}}

		launch := true
		razorOff := false
		cfg = &config.Config{
			ClientVersion: "3.21.0",
			FilesVersion:  "2024.3",
			PatchVersion:  "p17",
			RazorVersion:  config.VersionUnknown,
			InstallPath:   installRoot,
			Launch:        &launch,
			RazorEnabled:  &razorOff,
			ServerHost:    "login.openuo.org",
			ServerPort:    2593,
		}

		makeInstalled(ClientDir)
		makeInstalled(FilesDir)
	})

	Context("when everything is current", func() {
		It("installs nothing and hands off to the client", func() {
			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.stages).To(BeEmpty())
			Expect(installer.patches).To(BeEmpty())
			Expect(store.writes).To(BeEmpty())
			Expect(handoffCalled).To(BeTrue())
		})

		It("suppresses the handoff with NoLaunch", func() {
			Expect(newLauncher().Run(context.Background(), cfg, Options{NoLaunch: true})).To(Succeed())

			Expect(handoffCalled).To(BeFalse())
			Expect(out.String()).To(ContainSubstring("launch suppressed"))
		})

		It("suppresses the handoff when launch is disabled in config", func() {
			launch := false
			cfg.Launch = &launch

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(handoffCalled).To(BeFalse())
		})

		It("syncs the client settings", func() {
			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(syncedValues).To(HaveLen(1))
			Expect(syncedValues[0].GameFilesDir).To(Equal(filepath.Join(installRoot, FilesDir)))
			Expect(syncedValues[0].ServerHost).To(Equal("login.openuo.org"))
			Expect(syncedValues[0].ServerPort).To(Equal(2593))
			Expect(syncedValues[0].RazorDir).To(BeEmpty())
		})
	})

	Context("when the client is outdated", func() {
		BeforeEach(func() {
			cfg.ClientVersion = "3.20.0"
		})

		It("installs the client and records the new version immediately", func() {
			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.stages).To(HaveLen(1))
			Expect(installer.stages[0].dest).To(Equal(filepath.Join(installRoot, ClientDir)))
			Expect(installer.stages[0].opts.Wipe).To(BeFalse())
			Expect(installer.stages[0].opts.StripWrapper).To(BeTrue())

			Expect(store.writes).To(ContainElement(versionWrite{
				field: cfgstore.FieldClientVersion, token: "3.21.0",
			}))
		})

		It("leaves the version untouched when the install fails", func() {
			installer.stageErr = errors.New("disk full")

			err := newLauncher().Run(context.Background(), cfg, Options{})

			Expect(err).To(MatchError(ContainSubstring("installing client")))
			Expect(store.writes).To(BeEmpty())
			Expect(cfg.ClientVersion).To(Equal("3.20.0"))
			Expect(handoffCalled).To(BeFalse())
		})

		It("leaves the version untouched when the download is interrupted", func() {
			installer.fetchErr = context.Canceled

			err := newLauncher().Run(context.Background(), cfg, Options{})

			Expect(err).To(HaveOccurred())
			Expect(store.writes).To(BeEmpty())
			Expect(cfg.ClientVersion).To(Equal("3.20.0"))
		})

		It("only reports in check mode", func() {
			Expect(newLauncher().Run(context.Background(), cfg, Options{CheckOnly: true})).To(Succeed())

			Expect(installer.stages).To(BeEmpty())
			Expect(store.writes).To(BeEmpty())
			Expect(handoffCalled).To(BeFalse())
			Expect(out.String()).To(ContainSubstring("3.21.0 available"))
		})
	})

	Context("when the client directory is missing", func() {
		It("reinstalls even though the recorded version matches", func() {
			Expect(os.RemoveAll(filepath.Join(installRoot, ClientDir))).To(Succeed())

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.stages).NotTo(BeEmpty())
			Expect(installer.stages[0].opts.Wipe).To(BeTrue())
		})
	})

	Context("with the wipe flag", func() {
		It("wipes every component", func() {
			razorOn := true
			cfg.RazorEnabled = &razorOn
			makeInstalled(RazorDir)

			Expect(newLauncher().Run(context.Background(), cfg, Options{Wipe: true})).To(Succeed())

			Expect(installer.stages).To(HaveLen(3))
			for _, call := range installer.stages {
				Expect(call.opts.Wipe).To(BeTrue())
			}
		})
	})

	Context("when the client version cannot be resolved", func() {
		BeforeEach(func() {
			client.manifest = remote.ClientManifest{Version: remote.Unknown}
		})

		It("skips the client and continues with the other components", func() {
			cfg.FilesVersion = "2024.2"

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(out.String()).To(ContainSubstring("cannot check client, skipping"))
			Expect(installer.stages).To(HaveLen(1))
			Expect(installer.stages[0].dest).To(Equal(filepath.Join(installRoot, FilesDir)))
			Expect(cfg.ClientVersion).To(Equal("3.21.0"))
		})
	})

	Context("game file patching", func() {
		It("applies the patch when only the patch version lags", func() {
			cfg.PatchVersion = "p16"

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.stages).To(BeEmpty())
			Expect(installer.patches).To(ConsistOf(filepath.Join(installRoot, FilesDir)))
			Expect(store.writes).To(ConsistOf(versionWrite{
				field: cfgstore.FieldPatchVersion, token: "p17",
			}))
		})

		It("records the patch version without re-applying after a fresh bundle install", func() {
			cfg.FilesVersion = "2024.2"
			cfg.PatchVersion = "p16"

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.patches).To(BeEmpty())
			Expect(store.writes).To(ContainElement(versionWrite{
				field: cfgstore.FieldPatchVersion, token: "p17",
			}))
		})

		It("fails the run when the patch cannot be applied", func() {
			cfg.PatchVersion = "p16"
			installer.patchErr = errors.New("corrupt archive")

			err := newLauncher().Run(context.Background(), cfg, Options{})

			Expect(err).To(MatchError(ContainSubstring("applying game file patch")))
			Expect(cfg.PatchVersion).To(Equal("p16"))
		})
	})

	Context("razor", func() {
		BeforeEach(func() {
			razorOn := true
			cfg.RazorEnabled = &razorOn
		})

		It("is not touched when disabled", func() {
			razorOff := false
			cfg.RazorEnabled = &razorOff

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.fixups).To(BeEmpty())
			Expect(store.writes).To(BeEmpty())
		})

		It("installs, fixes language files, and records the version", func() {
			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			razorDir := filepath.Join(installRoot, RazorDir)
			Expect(installer.stages).To(HaveLen(1))
			Expect(installer.stages[0].dest).To(Equal(razorDir))
			Expect(installer.fixups).To(ConsistOf(razorDir))
			Expect(store.writes).To(ContainElement(versionWrite{
				field: cfgstore.FieldRazorVersion, token: "v1.9.77.0",
			}))
			Expect(syncedValues[0].RazorDir).To(Equal(razorDir))
		})

		It("reinstalls on a channel switch with an identical version", func() {
			cfg.RazorVersion = "v1.9.77.0"
			makeInstalled(RazorDir)

			Expect(newLauncher().Run(context.Background(), cfg, Options{ChannelSwitched: true})).To(Succeed())

			Expect(installer.stages).To(HaveLen(1))
			Expect(installer.stages[0].opts.Wipe).To(BeTrue())
		})

		It("keeps a current install on the same channel", func() {
			cfg.RazorVersion = "v1.9.77.0"
			makeInstalled(RazorDir)

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.stages).To(BeEmpty())
		})
	})

	Context("client per-file integrity", func() {
		It("reinstalls when the manifest checksums do not match the local tree", func() {
			client.manifest.Files = []remote.FileChecksum{
				// Nothing on disk matches this digest.
				{Name: "client.bin", Hash: "0000000000000000"},
			}

			Expect(newLauncher().Run(context.Background(), cfg, Options{})).To(Succeed())

			Expect(installer.stages).To(HaveLen(1))
			Expect(installer.stages[0].opts.Wipe).To(BeTrue())
		})
	})
})
