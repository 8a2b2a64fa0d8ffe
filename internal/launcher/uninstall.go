package launcher

import (
	"os"

	"github.com/cockroachdb/errors"
)

// RemoveInstall deletes the install root. A missing root is not an
// error.
func RemoveInstall(installPath string) error {
	if installPath == "" {
		return errors.New("install path is empty")
	}

	if err := os.RemoveAll(installPath); err != nil {
		return errors.Wrapf(err, "removing %s", installPath)
	}

	return nil
}

// RemoveConfig deletes the launcher's own configuration directory.
func RemoveConfig(configDir string) error {
	if configDir == "" {
		return errors.New("config directory is empty")
	}

	if err := os.RemoveAll(configDir); err != nil {
		return errors.Wrapf(err, "removing %s", configDir)
	}

	return nil
}
