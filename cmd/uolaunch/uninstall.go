package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgstore "github.com/openuo/uolaunch/internal/config"
	"github.com/openuo/uolaunch/internal/launcher"
	"github.com/openuo/uolaunch/internal/prompt"
	"github.com/openuo/uolaunch/internal/xdg"
)

var uninstallYesFlag bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the game installation",
	Long: `Remove the install root (client, game files, and Razor).

The launcher configuration is only removed when confirmed separately,
so a later reinstall keeps its settings.`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)

	uninstallCmd.Flags().BoolVarP(
		&uninstallYesFlag,
		"yes",
		"y",
		false,
		"Do not ask for confirmation",
	)
}

func runUninstall(_ *cobra.Command, _ []string) error {
	log := newLogger()

	store := cfgstore.NewStore(log)

	cfg, err := store.Load(nil)
	if err != nil {
		return err
	}

	prompter := prompt.NewStdPrompter()

	if !uninstallYesFlag {
		ok, confirmErr := prompter.Confirm(
			fmt.Sprintf("Remove %s and everything in it", cfg.InstallPath), false,
		)
		if confirmErr != nil {
			return confirmErr
		}

		if !ok {
			fmt.Println("aborted")

			return nil
		}
	}

	if err := launcher.RemoveInstall(cfg.InstallPath); err != nil {
		return err
	}

	fmt.Printf("removed %s\n", cfg.InstallPath)

	// Config removal is opt-in even under --yes: a reinstall should
	// find its settings again.
	removeConfig := false

	if !uninstallYesFlag {
		removeConfig, err = prompter.Confirm("Also remove the launcher configuration", false)
		if err != nil {
			return err
		}
	}

	if !removeConfig {
		return nil
	}

	if err := launcher.RemoveConfig(xdg.ConfigDir()); err != nil {
		return err
	}

	fmt.Printf("removed %s\n", xdg.ConfigDir())

	return nil
}
