//go:build windows

package launcher

import (
	"os/exec"

	"github.com/cockroachdb/errors"
)

// launchClient starts the client as a detached child; there is no
// process replacement on Windows.
func launchClient(clientDir string) error {
	target, err := resolveTarget(clientDir)
	if err != nil {
		return err
	}

	cmd := exec.Command(target.path) //nolint:gosec // resolved inside our install root
	cmd.Dir = clientDir

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting %s", target.path)
	}

	return nil
}
