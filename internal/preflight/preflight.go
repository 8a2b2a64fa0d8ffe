// Package preflight checks environment preconditions before the run
// touches the network or the filesystem. Failures carry a corrective
// instruction and abort with nothing mutated.
package preflight

import (
	"runtime"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/internal/exec"
)

// monoTool is the CLR runtime required to start the client on
// non-Windows platforms.
const monoTool = "mono"

// monoProbeTimeout bounds the mono version probe.
const monoProbeTimeout = 10 * time.Second

// Options controls which checks run.
type Options struct {
	// SkipChecks bypasses every check.
	SkipChecks bool

	// NeedsMono requires the mono runtime to be present. Only
	// meaningful off Windows; the client runs natively there.
	NeedsMono bool
}

// Checker runs preflight checks.
type Checker struct {
	tools  exec.ToolChecker
	runner exec.CommandRunner
	euid   int
	goos   string
}

// New creates a Checker against the real environment.
func New(tools exec.ToolChecker, euid int) *Checker {
	return &Checker{
		tools:  tools,
		runner: exec.NewCommandRunner(monoProbeTimeout),
		euid:   euid,
		goos:   runtime.GOOS,
	}
}

// Run executes the checks in order. The first failure aborts.
func (c *Checker) Run(opts Options) error {
	if opts.SkipChecks {
		return nil
	}

	if err := c.checkNotRoot(); err != nil {
		return err
	}

	if err := c.checkMono(opts); err != nil {
		return err
	}

	return nil
}

// checkNotRoot refuses to run as root on unix: the install lands in
// the invoking user's home, and root-owned files there break every
// later run.
func (c *Checker) checkNotRoot() error {
	if c.goos == "windows" {
		return nil
	}

	if c.euid == 0 {
		return errors.New(
			"refusing to run as root: run as a regular user, " +
				"or pass --skip-checks if you know what you are doing",
		)
	}

	return nil
}

func (c *Checker) checkMono(opts Options) error {
	if !opts.NeedsMono || c.goos == "windows" {
		return nil
	}

	if err := c.tools.RequireTool(monoTool); err != nil {
		return errors.Wrap(err,
			"the mono runtime is required to start the client; "+
				"install it from your package manager (e.g. apt install mono-complete)",
		)
	}

	// A mono that is in PATH but cannot execute (broken install,
	// missing libraries) should fail here, not mid-launch.
	result, err := c.runner.RunWithTimeout(monoProbeTimeout, monoTool, "--version")
	if err != nil {
		return errors.Wrap(err,
			"mono is installed but not runnable; reinstall it before launching")
	}

	if result.ExitCode != 0 {
		return errors.Newf(
			"mono is installed but not runnable (exit %d): reinstall it before launching",
			result.ExitCode,
		)
	}

	return nil
}
