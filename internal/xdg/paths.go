// Package xdg provides centralized path management following XDG Base
// Directory conventions. All user-level paths the launcher touches on
// disk are defined here; everything inside the install root is owned by
// the installer.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "uolaunch"

func userHome() (string, error) {
	return os.UserHomeDir()
}

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config.
func ConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}

	home, err := userHome()
	if err != nil {
		return filepath.Join("~", ".config")
	}

	return filepath.Join(home, ".config")
}

// DataHome returns $XDG_DATA_HOME or ~/.local/share.
func DataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}

	home, err := userHome()
	if err != nil {
		return filepath.Join("~", ".local", "share")
	}

	return filepath.Join(home, ".local", "share")
}

// StateHome returns $XDG_STATE_HOME or ~/.local/state.
func StateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}

	home, err := userHome()
	if err != nil {
		return filepath.Join("~", ".local", "state")
	}

	return filepath.Join(home, ".local", "state")
}

// CacheHome returns $XDG_CACHE_HOME or ~/.cache.
func CacheHome() string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}

	home, err := userHome()
	if err != nil {
		return filepath.Join("~", ".cache")
	}

	return filepath.Join(home, ".cache")
}

// LegacyDir returns ~/.uolaunch (the pre-XDG location).
func LegacyDir() string {
	home, err := userHome()
	if err != nil {
		return filepath.Join("~", ".uolaunch")
	}

	return filepath.Join(home, ".uolaunch")
}

// ConfigDir returns the launcher configuration directory.
func ConfigDir() string {
	return ResolveDir(
		filepath.Join(ConfigHome(), appName),
		LegacyDir(),
	)
}

// ConfigFile returns the path of the persisted configuration record.
func ConfigFile() string {
	return ResolveFile(
		filepath.Join(ConfigHome(), appName, "config.toml"),
		filepath.Join(LegacyDir(), "config.toml"),
	)
}

// LogFile returns the launcher log file path.
func LogFile() string {
	return filepath.Join(StateHome(), appName, "uolaunch.log")
}

// DownloadDir returns the cache directory for fetched archives.
func DownloadDir() string {
	return filepath.Join(CacheHome(), appName, "downloads")
}

// DefaultInstallDir returns the default install root for the managed
// components.
func DefaultInstallDir() string {
	return filepath.Join(DataHome(), appName)
}
