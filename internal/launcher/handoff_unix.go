//go:build !windows

package launcher

import (
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

// launchClient replaces the launcher process with the client. On
// success it never returns.
func launchClient(clientDir string) error {
	target, err := resolveTarget(clientDir)
	if err != nil {
		return err
	}

	argv := []string{target.path}
	binary := target.path

	if target.useMono {
		mono, monoErr := monoPath()
		if monoErr != nil {
			return monoErr
		}

		binary = mono
		argv = []string{mono, target.path}
	}

	if err := syscall.Exec(binary, argv, os.Environ()); err != nil {
		return errors.Wrapf(err, "starting %s", target.path)
	}

	return nil
}
