// Package launcher orchestrates one run: reconcile every managed
// component against its remote state, sync the client's settings, then
// hand the process over to the game client.
//
// A Launcher is built per run and carries the run's memoized resolvers
// and scratch locations; nothing here is ambient or global.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	cfgstore "github.com/openuo/uolaunch/internal/config"
	"github.com/openuo/uolaunch/internal/install"
	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/internal/settings"
	"github.com/openuo/uolaunch/internal/verify"
	"github.com/openuo/uolaunch/pkg/config"
	"github.com/openuo/uolaunch/pkg/logger"
)

// Component subdirectories under the install root.
const (
	ClientDir = "client"
	FilesDir  = "files"
	RazorDir  = "razor"
)

// clientExecutables are the entry points marked executable after a
// client install.
var clientExecutables = []string{"ClassicUO", "ClassicUO.bin.x86_64"}

// Options are the one-shot switches of a run. They are never
// persisted.
type Options struct {
	// CheckOnly reports what would happen without installing anything.
	CheckOnly bool

	// Force requests an install for every component even when versions
	// match.
	Force bool

	// Wipe requests a clean reinstall for every component.
	Wipe bool

	// NoLaunch suppresses the final handoff to the client.
	NoLaunch bool

	// ChannelSwitched marks that the Razor channel changed this run,
	// making the recorded plugin version incomparable.
	ChannelSwitched bool
}

type clientResolver interface {
	Resolve(ctx context.Context) remote.ClientManifest
}

type filesResolver interface {
	Resolve(ctx context.Context) remote.FilesVersions
}

type razorResolver interface {
	Resolve(ctx context.Context) remote.RazorRelease
}

type installService interface {
	Fetch(ctx context.Context, locator string, progress install.ProgressFunc) (string, func(), error)
	StageAndReplace(archive, dest string, opts install.StageOptions) error
	ApplyPatch(archive, dest string) error
	FixupRazorProfiles(dir string) error
}

type configStore interface {
	SetVersion(cfg *config.Config, field cfgstore.VersionField, token string) error
}

// Deps are the collaborators a Launcher needs. All of them are
// required except Out and Log.
type Deps struct {
	Store     configStore
	Installer installService
	Client    clientResolver
	Files     filesResolver
	Razor     razorResolver
	Out       io.Writer
	Log       logger.Logger
}

// Launcher runs the reconciliation loop.
type Launcher struct {
	store     configStore
	installer installService
	client    clientResolver
	files     filesResolver
	razor     razorResolver
	out       io.Writer
	log       logger.Logger

	// syncSettings and handoff are replaceable for tests.
	syncSettings func(clientDir string, values settings.Values) error
	handoff      func(clientDir string) error
}

// New creates a Launcher from its collaborators.
func New(deps Deps) *Launcher {
	log := deps.Log
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	out := deps.Out
	if out == nil {
		out = os.Stdout
	}

	return &Launcher{
		store:     deps.Store,
		installer: deps.Installer,
		client:    deps.Client,
		files:     deps.Files,
		razor:     deps.Razor,
		out:       out,
		log:       log,
		syncSettings: func(clientDir string, values settings.Values) error {
			return settings.NewSyncer(clientDir, log).Sync(values)
		},
		handoff: launchClient,
	}
}

// Run reconciles every component in fixed order, syncs the client's
// settings, and hands the process to the client. Install failures are
// fatal; resolution failures skip the affected component with a status
// line. The handoff is the final statement and is never reached from
// an error path.
func (l *Launcher) Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if err := l.processClient(ctx, cfg, opts); err != nil {
		return err
	}

	if err := l.processFiles(ctx, cfg, opts); err != nil {
		return err
	}

	if cfg.IsRazorEnabled() {
		if err := l.processRazor(ctx, cfg, opts); err != nil {
			return err
		}
	}

	if opts.CheckOnly {
		return nil
	}

	clientDir := filepath.Join(cfg.InstallPath, ClientDir)

	values := settings.Values{
		GameFilesDir: filepath.Join(cfg.InstallPath, FilesDir),
		ServerHost:   cfg.ServerHost,
		ServerPort:   cfg.ServerPort,
	}
	if cfg.IsRazorEnabled() {
		values.RazorDir = filepath.Join(cfg.InstallPath, RazorDir)
	}

	if err := l.syncSettings(clientDir, values); err != nil {
		return errors.Wrap(err, "syncing client settings")
	}

	if opts.NoLaunch || !cfg.ShouldLaunch() {
		l.status("ready: launch suppressed")

		return nil
	}

	l.status("launching client")

	return l.handoff(clientDir)
}

// processClient reconciles the client runtime.
func (l *Launcher) processClient(ctx context.Context, cfg *config.Config, opts Options) error {
	manifest := l.client.Resolve(ctx)
	dest := filepath.Join(cfg.InstallPath, ClientDir)

	in := verify.Input{
		Local:       cfg.ClientVersion,
		Remote:      manifest.Version,
		LocalExists: dirExists(dest),
		ForceWipe:   opts.Wipe,
		ForceUpdate: opts.Force,
	}

	// Per-file integrity only matters when the tokens agree; a version
	// difference already forces the install.
	if in.LocalExists && len(manifest.Files) > 0 && !verify.NeedsUpdate(in.Local, in.Remote) {
		in.ChecksumMismatch = !verify.FilesMatch(dest, manifest.Files, l.log)
	}

	decision, err := verify.Check(in)
	if err != nil {
		return l.skipUnresolved("client", err)
	}

	if decision == verify.KeepCurrent {
		l.status("client %s is up to date", cfg.ClientVersion)

		return nil
	}

	if opts.CheckOnly {
		l.status("client: %s available (installed: %s)", manifest.Version, cfg.ClientVersion)

		return nil
	}

	stage := install.StageOptions{
		Wipe:         decision == verify.Reinstall,
		StripWrapper: true,
		Executables:  clientExecutables,
	}

	if err := l.installComponent(ctx, "client", manifest.ArchiveURL, dest, stage); err != nil {
		return err
	}

	return l.recordVersion(cfg, cfgstore.FieldClientVersion, manifest.Version)
}

// processFiles reconciles the asset bundle and then the incremental
// patch on top of it.
func (l *Launcher) processFiles(ctx context.Context, cfg *config.Config, opts Options) error {
	versions := l.files.Resolve(ctx)
	dest := filepath.Join(cfg.InstallPath, FilesDir)

	in := verify.Input{
		Local:       cfg.FilesVersion,
		Remote:      versions.Bundle,
		LocalExists: dirExists(dest),
		ForceWipe:   opts.Wipe,
		ForceUpdate: opts.Force,
	}

	decision, err := verify.Check(in)
	if err != nil {
		return l.skipUnresolved("game files", err)
	}

	bundleChanged := false

	switch {
	case decision == verify.KeepCurrent:
		l.status("game files %s are up to date", cfg.FilesVersion)
	case opts.CheckOnly:
		l.status("game files: %s available (installed: %s)", versions.Bundle, cfg.FilesVersion)

		return nil
	default:
		stage := install.StageOptions{
			Wipe:         decision == verify.Reinstall,
			StripWrapper: true,
		}

		if err := l.installComponent(ctx, "game files", versions.BundleURL, dest, stage); err != nil {
			return err
		}

		if err := l.recordVersion(cfg, cfgstore.FieldFilesVersion, versions.Bundle); err != nil {
			return err
		}

		bundleChanged = true
	}

	return l.processPatch(ctx, cfg, opts, versions, dest, bundleChanged)
}

// processPatch brings the incremental patch up to date. A bundle that
// was just installed already contains the current patch, so only the
// record is advanced in that case.
func (l *Launcher) processPatch(
	ctx context.Context,
	cfg *config.Config,
	opts Options,
	versions remote.FilesVersions,
	dest string,
	bundleChanged bool,
) error {
	if versions.Patch.IsUnknown() && !opts.Force && !opts.Wipe {
		return l.skipUnresolved("game file patch", verify.ErrRemoteUnknown)
	}

	if bundleChanged {
		return l.recordVersion(cfg, cfgstore.FieldPatchVersion, versions.Patch)
	}

	if !verify.NeedsUpdate(cfg.PatchVersion, versions.Patch) && !opts.Force && !opts.Wipe {
		l.status("game file patch %s is up to date", cfg.PatchVersion)

		return nil
	}

	if opts.CheckOnly {
		l.status("game file patch: %s available (installed: %s)", versions.Patch, cfg.PatchVersion)

		return nil
	}

	archive, cleanup, err := l.installer.Fetch(ctx, versions.PatchURL, l.progress("game file patch"))
	if err != nil {
		return errors.Wrap(err, "fetching game file patch")
	}
	defer cleanup()

	if err := l.installer.ApplyPatch(archive, dest); err != nil {
		return errors.Wrap(err, "applying game file patch")
	}

	return l.recordVersion(cfg, cfgstore.FieldPatchVersion, versions.Patch)
}

// processRazor reconciles the Razor plugin.
func (l *Launcher) processRazor(ctx context.Context, cfg *config.Config, opts Options) error {
	release := l.razor.Resolve(ctx)
	dest := filepath.Join(cfg.InstallPath, RazorDir)

	in := verify.Input{
		Local:           cfg.RazorVersion,
		Remote:          release.Version,
		LocalExists:     dirExists(dest),
		ForceWipe:       opts.Wipe,
		ForceUpdate:     opts.Force,
		ChannelSwitched: opts.ChannelSwitched,
	}

	decision, err := verify.Check(in)
	if err != nil {
		return l.skipUnresolved("razor", err)
	}

	if decision == verify.KeepCurrent {
		l.status("razor %s is up to date", cfg.RazorVersion)

		return nil
	}

	if opts.CheckOnly {
		l.status("razor: %s available (installed: %s)", release.Version, cfg.RazorVersion)

		return nil
	}

	stage := install.StageOptions{
		Wipe:         decision == verify.Reinstall,
		StripWrapper: true,
	}

	if err := l.installComponent(ctx, "razor", release.AssetURL, dest, stage); err != nil {
		return err
	}

	if err := l.installer.FixupRazorProfiles(dest); err != nil {
		return errors.Wrap(err, "fixing razor language files")
	}

	return l.recordVersion(cfg, cfgstore.FieldRazorVersion, release.Version)
}

// installComponent downloads and installs one component archive.
func (l *Launcher) installComponent(
	ctx context.Context,
	name, locator, dest string,
	stage install.StageOptions,
) error {
	archive, cleanup, err := l.installer.Fetch(ctx, locator, l.progress(name))
	if err != nil {
		return errors.Wrapf(err, "fetching %s", name)
	}
	defer cleanup()

	if err := l.installer.StageAndReplace(archive, dest, stage); err != nil {
		return errors.Wrapf(err, "installing %s", name)
	}

	return nil
}

// recordVersion persists one component's version field immediately.
func (l *Launcher) recordVersion(
	cfg *config.Config,
	field cfgstore.VersionField,
	version remote.Version,
) error {
	if err := l.store.SetVersion(cfg, field, version.String()); err != nil {
		return errors.Wrapf(err, "recording %s", field)
	}

	l.status("%s set to %s", field, version)

	return nil
}

// skipUnresolved reports an unresolvable component and continues the
// run; anything other than the resolution sentinel is fatal.
func (l *Launcher) skipUnresolved(name string, err error) error {
	if errors.Is(err, verify.ErrRemoteUnknown) {
		l.status("cannot check %s, skipping", name)

		return nil
	}

	return err
}

func (l *Launcher) status(format string, args ...any) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
