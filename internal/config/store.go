// Package config provides loading and persistence of the launcher
// configuration record.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openuo/uolaunch/internal/xdg"
	"github.com/openuo/uolaunch/pkg/config"
	"github.com/openuo/uolaunch/pkg/logger"
)

const (
	// ConfigFileMode is the file mode for the configuration file.
	ConfigFileMode = 0o600

	// ConfigDirMode is the file mode for the configuration directory.
	ConfigDirMode = 0o700

	// envPrefix is the prefix for configuration environment variables.
	envPrefix = "UOLAUNCH_"

	// defaultServerHost is the login server synced into the client settings.
	defaultServerHost = "login.openuo.org"

	// defaultServerPort is the classic login port.
	defaultServerPort = 2593
)

// Store loads and persists the configuration record. The file is the
// sole durable link between runs: a missing or unreadable file is not
// an error, it simply means no overrides over the defaults.
type Store struct {
	path string
	log  logger.Logger
}

// NewStore creates a Store at the default per-user config path.
func NewStore(log logger.Logger) *Store {
	return NewStoreWithPath(xdg.ConfigFile(), log)
}

// NewStoreWithPath creates a Store at a custom path (for testing).
func NewStoreWithPath(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Store{path: path, log: log}
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a config file has been persisted before.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)

	return err == nil && !info.IsDir()
}

// Load returns the configuration with precedence (highest to lowest):
// one-shot CLI flags, UOLAUNCH_* environment variables, the persisted
// TOML file, defaults. A malformed or missing file degrades to the
// remaining sources.
func (s *Store) Load(flags map[string]any) (*config.Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "loading defaults")
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := k.Load(file.Provider(s.path), tomlparser.Parser()); err != nil {
			// Not fatal: a torn or hand-mangled file means no overrides.
			s.log.Error("config file unreadable, using defaults",
				"path", s.path, "error", err)
		}
	}

	envOpt := env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envTransform,
	}

	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment variables")
	}

	if len(flags) > 0 {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, errors.Wrap(err, "loading flags")
		}
	}

	var cfg config.Config

	unmarshalConf := koanf.UnmarshalConf{Tag: "koanf", FlatPaths: false}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	normalizeVersions(&cfg)

	return &cfg, nil
}

// envTransform maps UOLAUNCH_RAZOR_CHANNEL to razor_channel and so on.
// Configuration keys are flat, so underscores are preserved.
func envTransform(key, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)

	return key, value
}

// normalizeVersions maps empty version tokens to the unknown sentinel
// so every downstream comparison sees a well-formed token.
func normalizeVersions(cfg *config.Config) {
	cfg.ClientVersion = config.NormalizeVersion(cfg.ClientVersion)
	cfg.FilesVersion = config.NormalizeVersion(cfg.FilesVersion)
	cfg.PatchVersion = config.NormalizeVersion(cfg.PatchVersion)
	cfg.RazorVersion = config.NormalizeVersion(cfg.RazorVersion)
}

// defaultsToMap returns the default record as a koanf map.
func defaultsToMap() map[string]any {
	return map[string]any{
		"client_version": config.VersionUnknown,
		"files_version":  config.VersionUnknown,
		"patch_version":  config.VersionUnknown,
		"razor_version":  config.VersionUnknown,
		"install_path":   xdg.DefaultInstallDir(),
		"launch":         true,
		"razor_enabled":  false,
		"razor_channel":  config.ChannelStable.String(),
		"server_host":    defaultServerHost,
		"server_port":    defaultServerPort,
	}
}
