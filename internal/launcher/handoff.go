package launcher

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// clientBinaries are tried in order when resolving the client entry
// point. The .exe variant is a CLR assembly and needs mono off
// Windows.
var clientBinaries = []string{"ClassicUO", "ClassicUO.bin.x86_64", "ClassicUO.exe"}

// launchTarget is a resolved client entry point.
type launchTarget struct {
	path    string
	useMono bool
}

// resolveTarget finds the client executable inside the client
// directory.
func resolveTarget(clientDir string) (launchTarget, error) {
	for _, name := range clientBinaries {
		path := filepath.Join(clientDir, name)
		if !fileExists(path) {
			continue
		}

		return launchTarget{
			path:    path,
			useMono: filepath.Ext(name) == ".exe",
		}, nil
	}

	return launchTarget{}, errors.Errorf("no client executable found in %s", clientDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// monoPath resolves the mono runtime for CLR client builds.
func monoPath() (string, error) {
	path, err := exec.LookPath("mono")
	if err != nil {
		return "", errors.Wrap(err, "locating mono runtime")
	}

	return path, nil
}
