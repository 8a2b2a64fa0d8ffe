// Package main provides the CLI entry point for uolaunch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	cfgstore "github.com/openuo/uolaunch/internal/config"
	"github.com/openuo/uolaunch/internal/exec"
	"github.com/openuo/uolaunch/internal/install"
	"github.com/openuo/uolaunch/internal/launcher"
	"github.com/openuo/uolaunch/internal/preflight"
	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/internal/selfupdate"
	"github.com/openuo/uolaunch/internal/setup"
	"github.com/openuo/uolaunch/internal/xdg"
	"github.com/openuo/uolaunch/pkg/config"
	"github.com/openuo/uolaunch/pkg/logger"
)

// Remote endpoints for the managed components.
const (
	clientManifestURL = "https://files.openuo.org/client.json"
	filesListURL      = "https://files.openuo.org/version.txt"
	filesBaseURL      = "https://files.openuo.org/dist"
)

const (
	// ExitCodeOK indicates success, including a completed launch handoff
	// and a completed self-update.
	ExitCodeOK = 0

	// ExitCodeError indicates a fatal error.
	ExitCodeError = 1

	// ExitCodeUpToDate is returned by self-update when the running
	// binary already matches the latest release, so scripts can tell
	// "nothing to do" apart from "updated".
	ExitCodeUpToDate = 2
)

var (
	checkFlag      bool
	forceFlag      bool
	wipeFlag       bool
	pathFlag       string
	razorFlag      bool
	noRazorFlag    bool
	channelFlag    string
	noLaunchFlag   bool
	skipChecksFlag bool
	debugFlag      bool
	traceFlag      bool
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	err := rootCmd.Execute()

	code := exitCodeFor(err)
	if code == ExitCodeError {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	return code
}

// exitCodeFor maps the root command's result to the process exit code.
// ErrAlreadyLatest is a distinct outcome, not a failure: its status line
// has already been printed by the self-update command.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitCodeOK
	case errors.Is(err, selfupdate.ErrAlreadyLatest):
		return ExitCodeUpToDate
	default:
		return ExitCodeError
	}
}

var rootCmd = &cobra.Command{
	Use:   "uolaunch",
	Short: "Ultima Online launcher and updater",
	Long: `uolaunch keeps an Ultima Online installation current and starts it:
the ClassicUO client, the game-file bundle with its incremental
patches, and optionally the Razor assistant.`,
	RunE:              run,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	flags := rootCmd.Flags()

	flags.BoolVar(&checkFlag, "check", false, "Report available updates without installing")
	flags.BoolVar(&forceFlag, "force", false, "Install every component even when versions match")
	flags.BoolVar(&wipeFlag, "wipe", false, "Wipe and reinstall every component")
	flags.StringVar(&pathFlag, "path", "", "Install root (persisted)")
	flags.BoolVar(&razorFlag, "razor", false, "Enable the Razor assistant (persisted)")
	flags.BoolVar(&noRazorFlag, "no-razor", false, "Disable the Razor assistant (persisted)")
	flags.StringVar(&channelFlag, "channel", "", "Razor release channel: stable or dev (persisted)")
	flags.BoolVar(&noLaunchFlag, "no-launch", false, "Skip starting the client after updating")
	flags.BoolVar(&skipChecksFlag, "skip-checks", false, "Skip environment preflight checks")

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Enable trace logging")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := newLogger()

	store := cfgstore.NewStore(log)
	firstRun := !store.Exists()

	cfg, err := store.Load(nil)
	if err != nil {
		return err
	}

	persist, channelSwitched, err := applyPersistedFlags(cmd, cfg)
	if err != nil {
		return err
	}

	if firstRun && !checkFlag {
		if setupErr := runFirstSetup(cfg); setupErr != nil {
			return setupErr
		}

		persist = true
	}

	checker := preflight.New(exec.NewToolChecker(), os.Geteuid())

	preflightOpts := preflight.Options{
		SkipChecks: skipChecksFlag || checkFlag,
		NeedsMono:  cfg.IsRazorEnabled(),
	}
	if preflightErr := checker.Run(preflightOpts); preflightErr != nil {
		return preflightErr
	}

	if persist {
		if saveErr := store.Save(cfg); saveErr != nil {
			return saveErr
		}
	}

	downloader := install.NewDownloader(nil)
	installer := install.New(downloader, xdg.DownloadDir(), log)

	l := launcher.New(launcher.Deps{
		Store:     store,
		Installer: installer,
		Client:    remote.NewClientResolver(downloader, clientManifestURL, log),
		Files:     remote.NewFilesResolver(downloader, filesListURL, filesBaseURL, log),
		Razor: remote.NewRazorResolver(
			remote.NewReleasesClient(), cfg.GetRazorChannel(), log,
		),
		Out: os.Stdout,
		Log: log,
	})

	return l.Run(ctx, cfg, launcher.Options{
		CheckOnly:       checkFlag,
		Force:           forceFlag,
		Wipe:            wipeFlag,
		NoLaunch:        noLaunchFlag,
		ChannelSwitched: channelSwitched,
	})
}

// applyPersistedFlags folds the persisted flags into the config record
// and reports whether a save is needed and whether the Razor channel
// changed.
func applyPersistedFlags(cmd *cobra.Command, cfg *config.Config) (persist, channelSwitched bool, err error) {
	flags := cmd.Flags()

	if flags.Changed("path") && pathFlag != cfg.InstallPath {
		cfg.InstallPath = pathFlag
		persist = true
	}

	if flags.Changed("razor") && razorFlag {
		enabled := true
		cfg.RazorEnabled = &enabled
		persist = true
	}

	if flags.Changed("no-razor") && noRazorFlag {
		enabled := false
		cfg.RazorEnabled = &enabled
		persist = true
	}

	if flags.Changed("channel") {
		channel, parseErr := config.ParseChannel(channelFlag)
		if parseErr != nil {
			return false, false, parseErr
		}

		if channel != cfg.GetRazorChannel() {
			cfg.RazorChannel = channel.String()
			persist = true
			channelSwitched = true
		}
	}

	return persist, channelSwitched, nil
}

// runFirstSetup collects the initial configuration.
func runFirstSetup(cfg *config.Config) error {
	ui := setup.SelectUI()

	result := setup.DefaultsFrom(cfg)

	if ui.IsInteractive() {
		collected, err := ui.RunSetupForm(result)
		if err != nil {
			return err
		}

		result = collected
	}

	setup.Apply(cfg, result)

	return nil
}

// newLogger opens the run's file logger; logging never blocks a run,
// so failures fall back to the no-op logger.
func newLogger() logger.Logger {
	level := logger.LevelInfo
	if debugFlag || traceFlag {
		level = logger.LevelDebug
	}

	log, err := logger.NewFileLogger(xdg.LogFile(), level)
	if err != nil {
		return logger.NewNoOpLogger()
	}

	return log
}
