// Package config provides the persisted configuration schema for uolaunch.
package config

import (
	"github.com/cockroachdb/errors"
)

// VersionUnknown is the sentinel stored when a component's installed
// version cannot be determined. It never compares equal to a remote
// version, so a stored unknown always forces an update attempt.
const VersionUnknown = "unknown"

// ErrInvalidChannel is returned when an invalid channel value is provided.
var ErrInvalidChannel = errors.New("invalid channel")

// Channel selects the Razor release stream.
type Channel string

const (
	// ChannelStable follows tagged Razor releases.
	ChannelStable Channel = "stable"

	// ChannelDev follows prerelease Razor builds. Dev builds are not
	// tagged, so their version identifier is the release timestamp.
	ChannelDev Channel = "dev"
)

// ParseChannel parses a string into a Channel value.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelStable:
		return ChannelStable, nil
	case ChannelDev:
		return ChannelDev, nil
	default:
		return "", errors.Wrapf(
			ErrInvalidChannel,
			"%q, must be %q or %q",
			s, ChannelStable, ChannelDev,
		)
	}
}

// String returns the string representation of the channel.
func (c Channel) String() string {
	return string(c)
}

// Prerelease reports whether the channel selects prerelease builds.
func (c Channel) Prerelease() bool {
	return c == ChannelDev
}

// Config is the persisted launcher configuration. Version fields hold
// opaque tokens reported by the remote side (or VersionUnknown) and are
// the only durable record of what is installed.
type Config struct {
	ClientVersion string `koanf:"client_version" toml:"client_version"`
	FilesVersion  string `koanf:"files_version"  toml:"files_version"`
	PatchVersion  string `koanf:"patch_version"  toml:"patch_version"`
	RazorVersion  string `koanf:"razor_version"  toml:"razor_version"`

	InstallPath string `koanf:"install_path" toml:"install_path"`

	Launch       *bool  `koanf:"launch"        toml:"launch"`
	RazorEnabled *bool  `koanf:"razor_enabled" toml:"razor_enabled"`
	RazorChannel string `koanf:"razor_channel" toml:"razor_channel"`

	ServerHost string `koanf:"server_host" toml:"server_host"`
	ServerPort int    `koanf:"server_port" toml:"server_port"`
}

// ShouldLaunch returns whether the client should be started after a
// successful run. Defaults to true.
func (c *Config) ShouldLaunch() bool {
	if c == nil || c.Launch == nil {
		return true
	}

	return *c.Launch
}

// IsRazorEnabled returns whether the Razor plugin is managed. Defaults
// to false.
func (c *Config) IsRazorEnabled() bool {
	if c == nil || c.RazorEnabled == nil {
		return false
	}

	return *c.RazorEnabled
}

// GetRazorChannel returns the configured release channel, defaulting to
// stable when unset or invalid.
func (c *Config) GetRazorChannel() Channel {
	if c == nil {
		return ChannelStable
	}

	ch, err := ParseChannel(c.RazorChannel)
	if err != nil {
		return ChannelStable
	}

	return ch
}

// NormalizeVersion maps an empty stored token to VersionUnknown so
// callers never compare against "".
func NormalizeVersion(token string) string {
	if token == "" {
		return VersionUnknown
	}

	return token
}
