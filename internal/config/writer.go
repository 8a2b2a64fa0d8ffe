package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/openuo/uolaunch/pkg/config"
)

// VersionField identifies one persisted version slot.
type VersionField int

const (
	// FieldClientVersion tracks the installed client runtime.
	FieldClientVersion VersionField = iota

	// FieldFilesVersion tracks the installed full game-file bundle.
	FieldFilesVersion

	// FieldPatchVersion tracks the incremental patch applied over the bundle.
	FieldPatchVersion

	// FieldRazorVersion tracks the installed Razor plugin.
	FieldRazorVersion
)

// String returns the config key of the field.
func (f VersionField) String() string {
	switch f {
	case FieldClientVersion:
		return "client_version"
	case FieldFilesVersion:
		return "files_version"
	case FieldPatchVersion:
		return "patch_version"
	default:
		return "razor_version"
	}
}

// Save persists the record. The file is written next to its final
// location and renamed, so a reader never observes a half-written
// record. The containing directory is created when absent.
func (s *Store) Save(cfg *config.Config) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, ConfigDirMode); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, ConfigFileMode); err != nil {
		return errors.Wrap(err, "writing config")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)

		return errors.Wrap(err, "replacing config")
	}

	s.log.Debug("config saved", "path", s.path)

	return nil
}

// SetVersion updates one version field on the record and persists it
// immediately. Installs advance the durable record field-by-field, so a
// crash mid-run keeps every finished component's new version.
func (s *Store) SetVersion(cfg *config.Config, field VersionField, token string) error {
	token = config.NormalizeVersion(token)

	switch field {
	case FieldClientVersion:
		cfg.ClientVersion = token
	case FieldFilesVersion:
		cfg.FilesVersion = token
	case FieldPatchVersion:
		cfg.PatchVersion = token
	case FieldRazorVersion:
		cfg.RazorVersion = token
	}

	if err := s.Save(cfg); err != nil {
		return errors.Wrapf(err, "persisting %s", field)
	}

	s.log.Info("version recorded", "field", field.String(), "version", token)

	return nil
}
