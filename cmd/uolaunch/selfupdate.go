package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openuo/uolaunch/internal/install"
	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/internal/selfupdate"
)

const selfUpdateTimeout = 5 * time.Minute

var selfUpdateCheckFlag bool

var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Update uolaunch to the latest version",
	Long: `Update uolaunch to the latest version from GitHub Releases.

Downloads the release archive, verifies the SHA256 checksum,
and atomically replaces the current binary.

Exit codes: 0 when an update was installed (or, with --check, one is
available), 2 when the binary is already up to date, 1 on error.`,
	RunE:          runSelfUpdate,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(selfUpdateCmd)

	selfUpdateCmd.Flags().BoolVar(
		&selfUpdateCheckFlag,
		"check",
		false,
		"Only check for updates, don't install",
	)
}

func runSelfUpdate(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), selfUpdateTimeout)
	defer cancel()

	up := selfupdate.New(
		version,
		remote.NewReleasesClient(),
		install.NewDownloader(nil),
		newLogger(),
	)

	tag, err := up.CheckLatest(ctx)
	if errors.Is(err, selfupdate.ErrAlreadyLatest) {
		fmt.Printf("uolaunch %s is already up to date\n", version)

		// Propagated so the process exits with ExitCodeUpToDate.
		return err
	}

	if err != nil {
		return err
	}

	if selfUpdateCheckFlag {
		fmt.Printf("update available: %s (current: %s)\n", tag, version)
		fmt.Println("run 'uolaunch self-update' to install it")

		return nil
	}

	result, err := up.Update(ctx, tag, selfUpdateProgress)
	if err != nil {
		return err
	}

	fmt.Printf("updated uolaunch %s -> %s (%s)\n",
		result.PreviousVersion, result.NewVersion, result.BinaryPath)

	return nil
}

// selfUpdateProgress prints download progress on one line.
func selfUpdateProgress(received, total int64) {
	if total > 0 {
		fmt.Printf("\rdownloading: %s / %s",
			humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total))) //nolint:gosec // byte counts are non-negative

		if received >= total {
			fmt.Println()
		}

		return
	}

	fmt.Printf("\rdownloading: %s", humanize.Bytes(uint64(received))) //nolint:gosec // byte counts are non-negative
}

var _ install.ProgressFunc = selfUpdateProgress
