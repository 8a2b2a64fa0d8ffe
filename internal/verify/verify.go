// Package verify decides, per managed component, whether the installed
// copy needs work. The decision is a pure function of the local record
// and the resolved remote state, so every rule here is directly
// testable without any I/O.
package verify

import (
	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/internal/remote"
	"github.com/openuo/uolaunch/pkg/config"
)

// ErrRemoteUnknown is returned when the remote version could not be
// resolved and no flag forces an install anyway. Installing an artifact
// whose identity is unknown would record a version that can never be
// compared, so the component is skipped instead.
var ErrRemoteUnknown = errors.New("remote version unknown")

// Decision is the outcome of a component check.
type Decision int

const (
	// KeepCurrent means the installed copy matches the remote state.
	KeepCurrent Decision = iota

	// Install means the component must be downloaded and installed,
	// preserving whatever else lives under the destination.
	Install

	// Reinstall means the destination must be wiped before installing.
	Reinstall
)

// String returns a stable name for logs.
func (d Decision) String() string {
	switch d {
	case KeepCurrent:
		return "keep-current"
	case Install:
		return "install"
	case Reinstall:
		return "reinstall"
	default:
		return "unknown"
	}
}

// Input is everything a component check looks at.
type Input struct {
	// Local is the recorded version of the installed copy.
	Local string

	// Remote is the resolved upstream version.
	Remote remote.Version

	// LocalExists reports whether the destination directory exists. A
	// recorded version with no directory behind it is stale state.
	LocalExists bool

	// ForceWipe requests a clean reinstall regardless of versions.
	ForceWipe bool

	// ForceUpdate requests an install regardless of versions.
	ForceUpdate bool

	// ChannelSwitched reports that the release channel changed since
	// the recorded version was installed, making the recorded version
	// incomparable.
	ChannelSwitched bool

	// ChecksumMismatch reports that a per-file integrity check found
	// local files differing from the remote manifest.
	ChecksumMismatch bool
}

// Check decides what to do with a component. A missing destination is
// always a clean reinstall. Forcing flags dominate version comparison:
// wipe beats update, update beats the version diff, and a channel
// switch or checksum mismatch forces a reinstall even when the
// recorded tokens happen to match.
//
// When the remote version is unknown and nothing forces an install,
// Check returns ErrRemoteUnknown: the component is left untouched.
func Check(in Input) (Decision, error) {
	if in.Remote.IsUnknown() && !in.ForceWipe && !in.ForceUpdate {
		return KeepCurrent, ErrRemoteUnknown
	}

	if !in.LocalExists || in.ForceWipe {
		return Reinstall, nil
	}

	if in.ForceUpdate {
		return Install, nil
	}

	if in.ChannelSwitched || in.ChecksumMismatch {
		return Reinstall, nil
	}

	if NeedsUpdate(in.Local, in.Remote) {
		return Install, nil
	}

	return KeepCurrent, nil
}

// NeedsUpdate reports whether the recorded version differs from the
// remote one. The unknown sentinel never equals a real remote version,
// so a component that was never installed (or whose record was lost)
// always reads as outdated.
func NeedsUpdate(local string, remoteVersion remote.Version) bool {
	if local == config.VersionUnknown || local == "" {
		return true
	}

	return local != remoteVersion.String()
}
